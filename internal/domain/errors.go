package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedField = errors.New("field filtering is not supported")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrRemote           = errors.New("remote request failed")
	ErrInvalidPage      = errors.New("invalid result page")
)

// RemoteError carries the non-2xx status returned by the API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: http %d", ErrRemote, e.StatusCode)
	}
	return fmt.Sprintf("%v: http %d: %s", ErrRemote, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error { return ErrRemote }
