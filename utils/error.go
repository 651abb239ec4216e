package utils

import "errors"

var (
	ErrSessionNotFound = errors.New("allocation session not found")
	ErrInvalidSnapshot = errors.New("invalid allocation snapshot")
)
