package rider

import "errors"

var (
	ErrRiderNotFound  = errors.New("rider not found")
	ErrRiderUnavailable = errors.New("rider is not available for assignment")
)
