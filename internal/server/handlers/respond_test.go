package handlers

import (
	"net/http"
	"testing"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

func TestStatusFor(t *testing.T) {
	tests := map[models.ErrorKind]int{
		models.KindNone:              http.StatusOK,
		models.KindInsufficientStock: http.StatusConflict,
		models.KindInvalidState:      http.StatusConflict,
		models.KindValidationFailed:  http.StatusUnprocessableEntity,
		models.KindContention:        http.StatusServiceUnavailable,
		models.KindNotFound:          http.StatusNotFound,
		models.KindForbidden:         http.StatusForbidden,
		models.KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusFor(kind); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", kind, got, want)
		}
	}
}
