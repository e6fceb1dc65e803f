package ledger

import "errors"

var (
	ErrMissingID       = errors.New("flush id is required")
	ErrInvalidCount    = errors.New("message count must not be negative")
	ErrInvalidExchange = errors.New("exchange filter is too long")
)
