package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/response"
	appValidator "github.com/charlesng35/accounts/pkg/validator"
)

const msgPhoneFormat = "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}

	return true
}

// validationError turns validator failures into per-field messages.
func validationError(err error) *appErrors.AppError {
	var ve appValidator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return appErrors.NewBadRequest("invalid request payload")
	}

	fields := appErrors.FieldErrors{}
	for _, failure := range ve {
		fields.Add(failure.Field, fieldMessage(failure))
	}
	return appErrors.NewValidation(fields)
}

func fieldMessage(failure appValidator.ValidationError) string {
	switch failure.Tag {
	case "required", "required_without":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "phone":
		return msgPhoneFormat
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", failure.Param)
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", failure.Param)
	case "oneof":
		return fmt.Sprintf("Select one of: %s.", strings.ReplaceAll(failure.Param, " ", ", "))
	case "datetime":
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	case "dive":
		return "Invalid item."
	default:
		if failure.Param != "" {
			return fmt.Sprintf("failed validation: %s=%s", failure.Tag, failure.Param)
		}
		return fmt.Sprintf("failed validation: %s", failure.Tag)
	}
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &parsed
}
