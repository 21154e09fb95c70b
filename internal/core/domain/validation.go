package domain

import (
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with endpoint-specific custom validators.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a new validation instance with the custom validators registered.
func NewValidator() *Validator {
	validate := validator.New()

	_ = validate.RegisterValidation("endpoint_role", validateRoleCustom)
	_ = validate.RegisterValidation("security_protocol", validateSecurityProtocolCustom)
	_ = validate.RegisterValidation("auth_type", validateAuthTypeCustom)
	_ = validate.RegisterValidation("pem", validatePEMCustom)
	_ = validate.RegisterValidation("duration", validateDurationCustom)

	return &Validator{
		validator: validate,
	}
}

// Validate validates a struct.
func (v *Validator) Validate(s interface{}) error {
	return v.validator.Struct(s)
}

// ValidateVar validates a single variable using the specified tag.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

func validateRoleCustom(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsKnown()
}

// Unset protocols are valid: the legacy verify flag applies.
func validateSecurityProtocolCustom(fl validator.FieldLevel) bool {
	return SecurityProtocol(fl.Field().String()).IsKnown()
}

func validateAuthTypeCustom(fl validator.FieldLevel) bool {
	return AuthType(fl.Field().String()).IsSupported()
}

// PEM custom validator: at least one CERTIFICATE block must decode.
func validatePEMCustom(fl validator.FieldLevel) bool {
	rest := []byte(strings.TrimSpace(fl.Field().String()))
	if len(rest) == 0 {
		return true // Empty values handled by 'required' tag
	}
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return false
		}
		if block.Type == "CERTIFICATE" {
			return true
		}
	}
}

// Duration custom validator for Go duration strings.
func validateDurationCustom(fl validator.FieldLevel) bool {
	duration := fl.Field().String()
	if duration == "" {
		return true
	}
	_, err := time.ParseDuration(duration)
	return err == nil
}

// ValidationError wraps go-playground validator errors with additional context.
type ValidationError struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", ve.Field, ve.Message)
}

// ConvertValidationErrors converts go-playground validation errors to our custom format.
func ConvertValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, validationErr := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   validationErr.Namespace(),
				Tag:     validationErr.Tag(),
				Value:   validationErr.Value(),
				Message: getCustomErrorMessage(validationErr),
			})
		}
	}

	return errors
}

// getCustomErrorMessage provides human-readable error messages for validation failures.
func getCustomErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "endpoint_role":
		return fmt.Sprintf("must be one of %v", KnownRoles())
	case "security_protocol":
		return "must be ssl-with-validation, ssl-with-validation-custom-ca or ssl-without-validation"
	case "auth_type":
		return fmt.Sprintf("must be one of %v", SupportedAuthTypes())
	case "pem":
		return "must contain a PEM encoded certificate"
	case "duration":
		return "must be a valid duration (e.g., 10s, 5m, 1h)"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
