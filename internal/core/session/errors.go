package session

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrUnknownVariant    = errors.New("unknown monkey variant")
)
