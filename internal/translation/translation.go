// Package translation maps the errors of the storage, the request validation and downstream calls
// to the kinds of errors visible to clients.
package translation

import (
	"errors"
	"net/http"

	"github.com/openHPI/velo/internal/downstream"
	"github.com/openHPI/velo/internal/validation"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/storage"
)

// Error is an error whose externally visible kind has already been determined.
type Error struct {
	Kind dto.ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Translate wraps err into an *Error carrying its kind. Translating a translated error does not change its kind.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var translated *Error
	if errors.As(err, &translated) {
		return err
	}
	return &Error{Kind: Kind(err), Err: err}
}

// Kind returns the externally visible kind of err. Errors that are not known are a ServerError.
func Kind(err error) dto.ErrorKind {
	var translated *Error
	var statusError *downstream.StatusError
	switch {
	case errors.As(err, &translated):
		return translated.Kind
	case errors.Is(err, validation.ErrInvalid):
		return dto.BadRequest
	case errors.Is(err, storage.ErrNotFound):
		return dto.NotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return dto.ServerError
	case errors.Is(err, downstream.ErrExhausted):
		return dto.BadGateway
	case errors.As(err, &statusError):
		return kindOfStatus(statusError.StatusCode)
	default:
		return dto.ServerError
	}
}

func kindOfStatus(statusCode int) dto.ErrorKind {
	switch statusCode {
	case http.StatusNotFound:
		return dto.NotFound
	case http.StatusBadRequest:
		return dto.BadRequest
	default:
		return dto.ServerError
	}
}
