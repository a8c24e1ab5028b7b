package serverutils

import (
	"errors"
	"strings"

	"premarket-access-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest runs struct tag validation and reports every failing
// field in the error metadata.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperror.Validation(err.Error(), nil)
	}

	fields := make(map[string]any, len(fieldErrors))
	var names []string
	for _, fe := range fieldErrors {
		fields[fe.Field()] = fe.Tag()
		names = append(names, fe.Field())
	}
	return apperror.Validation("invalid fields: "+strings.Join(names, ", "), map[string]any{"fields": fields})
}
