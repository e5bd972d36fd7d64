// Package errors holds the error vocabulary shared by the adapter and its remote backends.
package errors

import (
	"errors"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrAPIError      = errors.New("api error")
	ErrIOError       = errors.New("io error")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotReadable   = errors.New("not readable")
)

type wrapError struct {
	underlying error
	msg        string
	cause      error
}

var _ error = (*wrapError)(nil)

// Wrap returns an error that matches both underlying and cause with errors.Is and errors.As.
func Wrap(underlying error, msg string, cause error) error {
	return &wrapError{
		underlying: underlying,
		msg:        msg,
		cause:      cause,
	}
}

func NewAPIError(msg string, cause error) error {
	return Wrap(ErrAPIError, msg, cause)
}

func NewIOError(msg string, cause error) error {
	return Wrap(ErrIOError, msg, cause)
}

func (err *wrapError) Error() string {
	if err == nil {
		return "(*wrapError)(nil)"
	}
	message := err.underlying.Error() + ": " + err.msg
	if err.cause != nil {
		message += ": " + err.cause.Error()
	}
	return message
}

func (err *wrapError) Unwrap() []error {
	if err.cause == nil {
		return []error{err.underlying}
	}
	return []error{err.underlying, err.cause}
}
