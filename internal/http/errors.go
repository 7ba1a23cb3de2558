package http

import (
	"errors"
	"strconv"
)

var (
	// ErrUnauthorized means the call was rejected even after one token refresh
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedResponse means a successful response could not be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteError is the single error shape the client returns for any failed call
type RemoteError struct {
	Op       string
	Status   int
	Attempts int
	Body     string
	Err      error
}

func (e *RemoteError) Error() string {
	msg := e.Op + " failed after " + strconv.Itoa(e.Attempts) + " attempt"
	if e.Attempts != 1 {
		msg += "s"
	}
	if e.Status != 0 {
		msg += " (HTTP " + strconv.Itoa(e.Status) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsSuccessStatus checks if an HTTP status code is a 2xx
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
