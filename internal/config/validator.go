package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers client-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("storage_backend", validateStorageBackend); err != nil {
		return fmt.Errorf("failed to register storage_backend validator: %w", err)
	}
	return nil
}

// validateStorageBackend validates the storage backend field.
// Valid values: "memory", "file://<absolute-path>", or
// "sqlite://<absolute-path>".
func validateStorageBackend(fl validator.FieldLevel) bool {
	backend := fl.Field().String()

	if backend == "memory" {
		return true
	}
	for _, prefix := range []string{"file://", "sqlite://"} {
		if strings.HasPrefix(backend, prefix) {
			path := strings.TrimPrefix(backend, prefix)
			return path != "" && filepath.IsAbs(path)
		}
	}
	return false
}

// Validate validates the Config using struct tags.
// Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	field = strings.TrimPrefix(field, "config.")

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", field)
	case "url":
		return fmt.Sprintf("%s: must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, e.Param())
	case "min":
		return fmt.Sprintf("%s: must be at least %s", field, e.Param())
	case "storage_backend":
		return fmt.Sprintf("%s: must be \"memory\", \"file://<absolute path>\", or \"sqlite://<absolute path>\"", field)
	default:
		return fmt.Sprintf("%s: failed %s validation", field, e.Tag())
	}
}
