package tui

import "errors"

// ErrMissingAnswerer is returned when the answer service is not provided.
var ErrMissingAnswerer = errors.New("tui: answer service is required")
