package staging

import "errors"

// Domain errors for staging operations.
var (
	ErrNotFound  = errors.New("staged record not found")
	ErrDuplicate = errors.New("staged record already exists")
)
