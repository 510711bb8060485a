package utils

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Shared validator instance; caching it keeps tag metadata parsed once.
var validate = validator.New()

// Validate runs struct tag validation against s.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FormatValidationError flattens validation errors into one readable line,
// naming the failing field and constraint.
func FormatValidationError(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("%s failed on the '%s' rule", e.Field(), e.Tag())
		if param := e.Param(); param != "" {
			msg += fmt.Sprintf(" (expected %s)", param)
		}
		messages = append(messages, msg)
	}
	return strings.Join(messages, ", ")
}

// BindAndValidate binds the JSON request body into obj and validates it.
// On failure it writes a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	return true
}
