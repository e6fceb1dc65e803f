package publish

import "errors"

var (
	ErrMissingPayload    = errors.New("payload is required")
	ErrMissingRoutingKey = errors.New("routing_key is required when no default routing key is configured")
	ErrRoutingKeyTooLong = errors.New("routing_key must be at most 255 bytes")
)
