package records

import (
	"errors"
	"net/http"
)

// Domain errors for canonical record operations.
var (
	ErrNotFound  = errors.New("exam record not found")
	ErrDuplicate = errors.New("exam record already exists")
)

// MapHTTPStatus maps record domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
