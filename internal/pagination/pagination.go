// Package pagination provides utilities around page tokens.
package pagination

import (
	"encoding/base64"
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var (
	tokenEncoding = base64.RawURLEncoding
	validate      = validator.New(validator.WithRequiredStructEnabled())
)

// TokenError is an opaque error related to pagination tokens. The error message
// does not reveal internal details; use [errors.Unwrap] to access the cause.
type TokenError struct {
	cause error
}

// Error satisfies [error].
func (terr TokenError) Error() string {
	return "invalid pagination token"
}

// Unwrap returns the underlying cause of the token error.
func (terr TokenError) Unwrap() error {
	return terr.cause
}

// LogCursor resumes an action log listing after the last entry of a page.
type LogCursor struct {
	BeforeID int64 `json:"b" validate:"required,gt=0"`
}

// FromToken decodes an opaque pagination token into the provided struct,
// validating it against its `validate` tags. Returns a [TokenError] if decoding
// or validation fails.
func FromToken[T any](tkn string, dst *T) error {
	data, err := tokenEncoding.DecodeString(tkn)
	if err != nil {
		return TokenError{cause: err}
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return TokenError{cause: err}
	}
	if err = validate.Struct(dst); err != nil {
		return TokenError{cause: err}
	}
	return nil
}

// ToToken encodes a struct into an opaque pagination token. Returns a
// [TokenError] if validation or encoding fails.
func ToToken[T any](src T) (string, error) {
	if err := validate.Struct(src); err != nil {
		return "", TokenError{cause: err}
	}
	data, err := json.Marshal(src)
	if err != nil {
		return "", TokenError{cause: err}
	}
	return tokenEncoding.EncodeToString(data), nil
}
