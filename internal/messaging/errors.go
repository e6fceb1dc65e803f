package messaging

import (
	"errors"
	"fmt"
)

var (
	ErrUninitialized = errors.New("rabbitmq service not initialized")
	ErrAlreadyOpen   = errors.New("rabbitmq service already open")
	ErrClosed        = errors.New("rabbitmq service closed")
	ErrNilMessage    = errors.New("message is required")
	ErrNacked        = errors.New("message was nacked by the broker")
	ErrMissingURL    = errors.New("rabbitmq url is required")
)

func uninitialized(accessor string) error {
	return fmt.Errorf("%w: %s requested before Open", ErrUninitialized, accessor)
}
