package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

// statusFor maps an error kind to the HTTP status returned to callers.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNone:
		return http.StatusOK
	case models.KindInsufficientStock, models.KindInvalidState:
		return http.StatusConflict
	case models.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case models.KindContention:
		return http.StatusServiceUnavailable
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, status int, message string, data any, err error, warnings ...string) {
	if err != nil {
		c.JSON(statusFor(models.KindOf(err)), models.Failed(err))
		return
	}
	c.JSON(status, models.Succeeded(message, data, warnings...))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.Result{
		ErrorKind: models.KindValidationFailed,
		Rule:      "body",
		Message:   "invalid request body: " + err.Error(),
	})
}
