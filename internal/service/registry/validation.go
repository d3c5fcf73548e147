package registry

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

var (
	ninPattern   = regexp.MustCompile(`^[A-Z0-9]{14}$`)
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nin", func(fl validator.FieldLevel) bool {
		return ninPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toDomain converts validator output into a ValidationError naming the first failing field.
func toDomain(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.Invalid("fields", "%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return models.Invalid("fields", "%s is required", fe.Field())
	case "nin":
		return models.Invalid("fields", "%s must be 14 upper-case letters or digits", fe.Field())
	case "phone":
		return models.Invalid("fields", "%s must be a phone number of 10 to 15 digits", fe.Field())
	case "oneof":
		return models.Invalid("fields", "%s must be one of %s", fe.Field(), fe.Param())
	default:
		return models.Invalid("fields", "%s failed %s", fe.Field(), describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}
