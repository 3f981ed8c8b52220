package app

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// requestValidator satisfies [echo.Validator] using struct tags, reporting
// fields by their JSON names.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate}
}

// Validate satisfies [echo.Validator]. Failures become a 400 naming the first
// offending field.
func (v *requestValidator) Validate(i any) error {
	err := v.validate.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return echo.NewHTTPError(http.StatusBadRequest, describe(verrs[0])).SetInternal(err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// decodeJSON reads the request body as JSON whatever its declared content type.
func decodeJSON(c echo.Context, dst any) error {
	return c.Echo().JSONSerializer.Deserialize(c, dst)
}

// bind decodes and validates a JSON request body.
func bind(c echo.Context, dst any) error {
	if err := decodeJSON(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body").SetInternal(err)
	}
	return c.Validate(dst)
}
