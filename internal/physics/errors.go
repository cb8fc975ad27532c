package physics

import "errors"

var (
	// ErrInvalidSettings indicates a Settings value the world cannot step with.
	ErrInvalidSettings = errors.New("physics: invalid settings")

	// ErrNoTypes indicates a nil or empty interaction matrix.
	ErrNoTypes = errors.New("physics: matrix must have at least one type")
)
