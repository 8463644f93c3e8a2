package billing

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// =============================================================================
// VALIDATOR - Struct-tag validation for events and forms
// =============================================================================

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Decimals validate as numbers,
// dates and months validate as strings (empty when unset), and field names
// are reported by their JSON tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})

		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			switch d := field.Interface().(type) {
			case Date:
				return d.String()
			case YearMonth:
				return d.String()
			}
			return nil
		}, Date{}, YearMonth{})

		_ = v.RegisterValidation("casetype", func(fl validator.FieldLevel) bool {
			return slices.Contains(CaseTypes, CaseType(fl.Field().String()))
		})
		_ = v.RegisterValidation("casestatus", func(fl validator.FieldLevel) bool {
			return slices.Contains(CaseStatuses, CaseStatus(fl.Field().String()))
		})

		validate = v
	})
	return validate
}

// Validate checks s against its struct tags and returns a *ValidationError
// listing every failed field.
func Validate(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "casetype":
		return "is not a known case type"
	case "casestatus":
		return "must be ACTIVE, FILED or APPROVED"
	case "url":
		return "must be a URL"
	case "email":
		return "must be an email address"
	case "numeric":
		return "must be a number"
	}
	return "failed " + fe.Tag() + " check"
}
