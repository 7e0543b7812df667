package bid

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-bidcalc/internal/common"
)

var fieldMessages = map[string]map[string]string{
	"vehicleBasePrice": {
		"gt":  "Vehicle price must be greater than zero",
		"lte": "Vehicle price exceeds the maximum allowed value",
	},
	"vehicleType": {
		"oneof": "Vehicle type is not valid. Must be Common (1) or Luxury (2)",
	},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// validationError converts validator output into a 400 with one entry per field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.Internal(err)
	}
	details := make([]common.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = fe.Field() + " failed " + fe.Tag() + " validation"
		}
		details = append(details, common.FieldError{Field: fe.Field(), Message: msg})
	}
	return common.BadRequest(common.CodeValidation, "validation failed", err).WithDetails(details)
}
