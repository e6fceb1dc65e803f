package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Content types stamped on collected messages
const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
)

// NewPublishing converts a collected item into an AMQP message.
// Publishings pass through, byte slices and strings are sent as-is and
// anything else is encoded as JSON.
func NewPublishing(item interface{}) (amqp.Publishing, error) {
	var pub amqp.Publishing

	switch v := item.(type) {
	case nil:
		return pub, ErrNilMessage
	case amqp.Publishing:
		pub = v
	case *amqp.Publishing:
		if v == nil {
			return pub, ErrNilMessage
		}
		pub = *v
	case []byte:
		pub = amqp.Publishing{ContentType: ContentTypeBinary, Body: v}
	case string:
		pub = amqp.Publishing{ContentType: ContentTypeText, Body: []byte(v)}
	case json.RawMessage:
		pub = amqp.Publishing{ContentType: ContentTypeJSON, Body: v}
	default:
		body, err := json.Marshal(v)
		if err != nil {
			return pub, fmt.Errorf("failed to marshal message: %w", err)
		}
		pub = amqp.Publishing{ContentType: ContentTypeJSON, Body: body}
	}

	if pub.MessageId == "" {
		pub.MessageId = uuid.NewString()
	}
	if pub.Timestamp.IsZero() {
		pub.Timestamp = time.Now().UTC()
	}
	if pub.DeliveryMode == 0 {
		pub.DeliveryMode = amqp.Persistent
	}
	return pub, nil
}
