package messaging

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultExchangeType = "topic"
	DefaultDialTimeout  = 30 * time.Second
	DefaultHeartbeat    = 10 * time.Second
)

// Config describes one broker channel and the batch published through it.
type Config struct {
	URL            string
	ConnectionName string

	// Exchange is the exchange collectors publish to. Empty means the
	// default exchange, where the routing key names the queue.
	Exchange        string
	ExchangeType    string
	DeclareExchange bool
	RoutingKey      string

	PublisherConfirms bool
	Prefetch          int
	BatchSize         int

	DialTimeout time.Duration
	Heartbeat   time.Duration
}

// Key identifies the broker channel a config resolves to. Channel settings
// are part of it so configs that differ only in them get separate services.
func (c Config) Key() string {
	return strings.Join([]string{
		c.URL, c.Exchange, c.RoutingKey,
		strconv.FormatBool(c.PublisherConfirms),
		strconv.Itoa(c.Prefetch),
		strconv.Itoa(c.BatchSize),
	}, "|")
}

func (c Config) withDefaults() Config {
	if c.ExchangeType == "" {
		c.ExchangeType = DefaultExchangeType
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = DefaultHeartbeat
	}
	return c
}
