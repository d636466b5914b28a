package listview

import (
	"errors"
	"net/http"
)

var (
	errInvalidTable           = errors.New("listview: table name is required")
	errMissingOwner           = errors.New("listview: settings owner is required")
	errMissingSource          = errors.New("listview: data source not configured")
	errUnknownSelectionAction = errors.New("listview: unknown selection action")

	// ErrUnknownTable is returned when a table name is not registered.
	ErrUnknownTable = errors.New("listview: unknown table")
	// ErrForbidden is returned when the viewer lacks the table capability.
	ErrForbidden = errors.New("listview: viewer cannot access table")
)

const genericErrorMessage = "Something went wrong, please try again."

type statusCoder interface {
	StatusCode() int
}

type userMessager interface {
	UserMessage() string
}

// IsServerError reports whether err carries an HTTP 500 status.
func IsServerError(err error) bool {
	var sc statusCoder
	return errors.As(err, &sc) && sc.StatusCode() == http.StatusInternalServerError
}

// UserMessage returns the server supplied message carried by err, or a
// generic message.
func UserMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return genericErrorMessage
}
