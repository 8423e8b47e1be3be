package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a package or version is not found.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with additional context.
type NotFoundError struct {
	Repository string
	Name       string
	Version    string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s: package %s version %s not found", e.Repository, e.Name, e.Version)
	}
	return fmt.Sprintf("%s: package %s not found", e.Repository, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// EncodingError is returned when a record cannot be encoded because a
// required field is missing. It is never silently defaulted.
type EncodingError struct {
	Record string
	Field  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: required field %s is missing", e.Record, e.Field)
}

// SignatureError is returned when a signed payload fails verification
// against the repository public key.
type SignatureError struct {
	Repository string
}

func (e *SignatureError) Error() string {
	if e.Repository != "" {
		return fmt.Sprintf("payload signature does not match the %s repository key", e.Repository)
	}
	return "payload signature does not match the repository key"
}
