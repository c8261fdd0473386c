package middlewares

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"resort-billing/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names in validation errors
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name == "-" || name == "" {
			return sf.Name
		}
		return name
	})
	return v
}

// BindAndValidate parses the request body into dst, trims its strings and validates it.
// Returns fiber.ErrBadRequest for parse errors and a validator.ValidationErrors for validation issues.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.NormalizeDTO(dst)
	utils.NormalizePtrDTO(dst)
	return validate.Struct(dst)
}

// ValidateStruct validates any struct value using the shared validator instance.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}
