package state

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/go-playground/validator/v10"
)

// ValidationError is returned when an action is rejected before any network
// call. It matches ErrValidation and the cause in Err, if any.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err != nil {
			return e.Err.Error()
		}
		return sferrors.ErrValidation.Error()
	}
	fields := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		fields = append(fields, f+": "+rule)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", sferrors.ErrValidation, strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{sferrors.ErrValidation}
	}
	return []error{sferrors.ErrValidation, e.Err}
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerInput struct {
	FIO      string `json:"fio" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// newValidator reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Store) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}
