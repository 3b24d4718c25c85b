package preference

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/repository"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func errorsIsMalformed(err error) bool {
	return errors.Is(err, repository.ErrMalformedPreference)
}

func validationError(err error) error {
	appErr := apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid preference update")

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field: fieldPath(fe.Namespace()),
			Code:  fe.Tag(),
		})
	}
	return appErr.WithFieldErrors(fields)
}

// fieldPath drops the root struct name: "UpdatePreferenceInput.quiet_hours.start"
// becomes "quiet_hours.start".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
