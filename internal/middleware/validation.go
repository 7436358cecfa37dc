package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxBodyBytes caps request bodies decoded by DecodeAndValidate
const maxBodyBytes = 1 << 20

// ErrEmptyBody is returned when a request that needs a JSON body has none
var ErrEmptyBody = errors.New("request body is empty")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so clients see what they sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Money fields are decimals; numeric tags compare against their float value
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch v := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := v.Float64()
			return f
		case decimal.NullDecimal:
			if !v.Valid {
				return nil
			}
			f, _ := v.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})

	return v
}

// ValidateRequest runs the struct's validate tags
func ValidateRequest(v any) error {
	return validate.Struct(v)
}

// DecodeAndValidate reads at most maxBodyBytes of JSON into v and validates it
func DecodeAndValidate(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return ValidateRequest(v)
}

// ValidationError is one failed field, named by its JSON key
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors flattens validator failures; other errors yield nil
func FormatValidationErrors(err error) []ValidationError {
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return nil
	}

	out := make([]ValidationError, 0, len(failures))
	for _, fe := range failures {
		out = append(out, ValidationError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

var tagMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"uuid":     "Must be a valid UUID",
	"min":      "Value is too short",
	"max":      "Value is too long",
	"dive":     "Contains an invalid entry",
}

var boundMessages = map[string]string{
	"oneof": "Must be one of: ",
	"gte":   "Value must be greater than or equal to ",
	"lte":   "Value must be less than or equal to ",
	"gt":    "Value must be greater than ",
	"lt":    "Value must be less than ",
}

func describe(fe validator.FieldError) string {
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	if prefix, ok := boundMessages[fe.Tag()]; ok {
		return prefix + fe.Param()
	}
	return "Invalid value"
}
