package messaging_test

import (
	"context"
	"testing"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/testutil"
)

// TestRegistry_SharesServicePerKey tests that one service is opened per connection key
func TestRegistry_SharesServicePerKey(t *testing.T) {
	broker := testutil.NewFakeBroker()
	registry := messaging.NewRegistry(messaging.WithDialer(broker.Dial))
	defer registry.CloseAll()

	cfg := messaging.Config{URL: "amqp://localhost", Exchange: "a"}
	first, err := registry.Get(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := registry.Get(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first != second {
		t.Error("Expected the same service for the same key")
	}

	other, err := registry.Get(context.Background(), messaging.Config{URL: "amqp://localhost", Exchange: "b"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if other == first {
		t.Error("Expected a different service for a different exchange")
	}
	if broker.DialCount() != 2 {
		t.Errorf("Expected 2 dials, got %d", broker.DialCount())
	}
	if registry.Len() != 2 {
		t.Errorf("Expected 2 cached services, got %d", registry.Len())
	}
}

// TestRegistry_ChannelSettingsSeparateServices tests that configs differing
// only in channel settings do not share a service
func TestRegistry_ChannelSettingsSeparateServices(t *testing.T) {
	broker := testutil.NewFakeBroker()
	registry := messaging.NewRegistry(messaging.WithDialer(broker.Dial))
	defer registry.CloseAll()

	base := messaging.Config{URL: "amqp://localhost", Exchange: "a", Prefetch: 10}
	first, err := registry.Get(context.Background(), base)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	variants := []messaging.Config{base, base, base}
	variants[0].Prefetch = 50
	variants[1].BatchSize = 100
	variants[2].PublisherConfirms = true

	for _, cfg := range variants {
		svc, err := registry.Get(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if svc == first {
			t.Errorf("Expected a separate service for %+v", cfg)
		}
		if svc.Config().Prefetch != cfg.Prefetch || svc.Config().BatchSize != cfg.BatchSize {
			t.Errorf("Expected service to carry the requested settings, got %+v", svc.Config())
		}
	}
	if registry.Len() != 4 {
		t.Errorf("Expected 4 cached services, got %d", registry.Len())
	}
}

// TestRegistry_ReplacesDeadService tests that a service with a dead channel is reopened
func TestRegistry_ReplacesDeadService(t *testing.T) {
	broker := testutil.NewFakeBroker()
	registry := messaging.NewRegistry(messaging.WithDialer(broker.Dial))
	defer registry.CloseAll()

	cfg := messaging.Config{URL: "amqp://localhost"}
	first, _ := registry.Get(context.Background(), cfg)
	broker.LastConnection().LastChannel().Kill()

	second, err := registry.Get(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if second == first {
		t.Error("Expected a new service after the channel died")
	}
	if broker.DialCount() != 2 {
		t.Errorf("Expected 2 dials, got %d", broker.DialCount())
	}
}

// TestRegistry_CloseAll tests closing every cached service
func TestRegistry_CloseAll(t *testing.T) {
	broker := testutil.NewFakeBroker()
	registry := messaging.NewRegistry(messaging.WithDialer(broker.Dial))

	svc, _ := registry.Get(context.Background(), messaging.Config{URL: "amqp://localhost"})
	if err := registry.CloseAll(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", registry.Len())
	}
	if svc.IsOpen() {
		t.Error("Expected service to be closed")
	}
	if !broker.LastConnection().IsClosed() {
		t.Error("Expected connection to be closed")
	}
}
