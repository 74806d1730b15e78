package session

import (
	"errors"
	"net/http"
)

// ValidationError reports a request the controller refuses before submitting
// any work.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Msg }

// StatusCode maps validation failures to 400 Bad Request.
func (ValidationError) StatusCode() int { return http.StatusBadRequest }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e ValidationError
	return errors.As(err, &e)
}
