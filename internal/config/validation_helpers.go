package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

// convertValidationError normalizes validator errors into batchflow validation errors.
// prefix locates the validated struct inside the document, e.g. "steps[2].shell".
func convertValidationError(prefix string, err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := joinField(prefix, yamlishFieldName(ve))
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return batcherrors.NewValidationError(field, msg, err)
	}

	return batcherrors.NewValidationError(prefix, err.Error(), err)
}

// yamlishFieldName drops the struct name and lowercases the remaining path.
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}

func fieldForStep(scope string, index int, field string) string {
	return joinField(fmt.Sprintf("%s[%d]", scope, index), field)
}
