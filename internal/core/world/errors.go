package world

import "errors"

var (
	ErrInvalidLayout = errors.New("invalid arena layout")
	ErrNoSuchMonkey  = errors.New("no monkey for variant")
)
