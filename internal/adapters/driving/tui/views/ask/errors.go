package ask

import "errors"

// Error definitions for the ask view.
var (
	// ErrNoAnswerer indicates that no answer service was provided.
	ErrNoAnswerer = errors.New("answer service is required")
)
