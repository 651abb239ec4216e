package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateStruct runs the `validate` struct tags, diving into slices of structs.
func ValidateStruct(v any) error {
	return getValidator().Struct(v)
}

// ProcessValidationErrors maps a validator error to field namespace -> failed tag.
// Non-validator errors come back under the "error" key.
func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errorResponse["error"] = err.Error()
		return errorResponse
	}

	for _, ve := range validationErrors {
		errorResponse[ve.Namespace()] = ve.Tag()
	}

	return errorResponse
}

// ValidationSummary flattens ProcessValidationErrors into one stable line.
func ValidationSummary(err error) string {
	fields := ProcessValidationErrors(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, fields[k]))
	}
	return strings.Join(parts, ", ")
}

// DuplicateValues returns the values appearing more than once, in first-seen order.
func DuplicateValues[T comparable](slice []T) []T {
	seen := make(map[T]int, len(slice))
	var dup []T
	for _, v := range slice {
		seen[v]++
		if seen[v] == 2 {
			dup = append(dup, v)
		}
	}
	return dup
}
