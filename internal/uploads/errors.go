package uploads

import (
	"errors"
	"net/http"
)

// Domain errors for upload batch operations.
var (
	ErrNotFound          = errors.New("upload batch not found")
	ErrDuplicate         = errors.New("upload batch already exists")
	ErrInvalidTransition = errors.New("illegal batch status transition")
	ErrInvalidSource     = errors.New("unknown source type")
	ErrInvalidPeriod     = errors.New("invalid period reference")
)

// MapHTTPStatus maps upload domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidSource) || errors.Is(err, ErrInvalidPeriod) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
