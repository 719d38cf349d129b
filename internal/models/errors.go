package models

import "errors"

// ErrInvalidInput marks request data that cannot be evaluated: empty text, empty prior titles,
// or an empty suggestion theme. Callers surface it immediately without retrying.
var ErrInvalidInput = errors.New("invalid input")
