package attendance

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"presenca-bot/internal/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("phone11", validatePhone); err != nil {
		panic(err)
	}
	return v
}

func validatePhone(fl validator.FieldLevel) bool {
	return util.ValidPhone(fl.Field().String())
}

// validateStruct returns a user facing message for the first failed field, or "".
func validateStruct(ctx context.Context, s any) string {
	err := validate.StructCtx(ctx, s)
	if err == nil {
		return ""
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return err.Error()
	}
	fe := vErrors[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "phone11":
		return fe.Field() + " must have 11 digits"
	case "max":
		return fe.Field() + " is too long"
	default:
		return fe.Field() + " is invalid"
	}
}
