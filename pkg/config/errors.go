package config

import (
	"fmt"
	"strings"
)

// FieldError describes one missing or malformed configuration key
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("field '%s' (value: %s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// ConfigurationError lists every problem found while validating a configuration
type ConfigurationError struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if len(e.Errors) == 0 {
		return "invalid configuration"
	}

	if len(e.Errors) == 1 {
		return "invalid configuration: " + e.Errors[0].Error()
	}

	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("invalid configuration (%d problems): %s", len(e.Errors), strings.Join(messages, "; "))
}

// Add appends a problem
func (e *ConfigurationError) Add(field, value, message string) {
	e.Errors = append(e.Errors, FieldError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// HasErrors returns true if any problem was recorded
func (e *ConfigurationError) HasErrors() bool {
	return len(e.Errors) > 0
}
