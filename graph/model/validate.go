package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError reports which fields of a model failed validation.
type ValidationError struct {
	Model  string
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s validation failed: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Model, strings.Join(e.Fields, ", "))
}

// Validate checks v against its validate tags.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	t := reflect.Indirect(reflect.ValueOf(v)).Type()
	ve := &ValidationError{Model: t.Name()}
	var reasons []string
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fe.Field())
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, fmt.Sprintf("%s: is required", fe.Field()))
		case "min":
			if fe.Kind() == reflect.String {
				reasons = append(reasons, fmt.Sprintf("%s: shorter than the minimum allowed length (%s)", fe.Field(), fe.Param()))
			} else {
				reasons = append(reasons, fmt.Sprintf("%s: must not be less than %s", fe.Field(), fe.Param()))
			}
		default:
			reasons = append(reasons, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	ve.Reason = strings.Join(reasons, ", ")
	return ve
}

// Duplicate builds the validation error reported for a unique constraint violation.
func Duplicate(model string, field string, value string) *ValidationError {
	return &ValidationError{
		Model:  model,
		Fields: []string{field},
		Reason: fmt.Sprintf("%s: expected `%s` to be unique, value '%s'", field, field, value),
	}
}
