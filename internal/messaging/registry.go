package messaging

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Registry shares one open Service per connection key.
type Registry struct {
	mu       sync.Mutex
	services map[string]*Service
	opts     []Option
}

// NewRegistry creates a registry applying opts to every service it opens.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		services: make(map[string]*Service),
		opts:     opts,
	}
}

// Get returns the open service for cfg, opening one on first use. A service
// whose channel has died is closed and replaced.
func (r *Registry) Get(ctx context.Context, cfg Config) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cfg.Key()
	if svc, ok := r.services[key]; ok {
		if svc.IsOpen() {
			return svc, nil
		}
		log.Printf("Replacing closed RabbitMQ service for %s", MaskURL(cfg.URL))
		if err := svc.Close(); err != nil {
			log.Printf("[WARN] Failed to close dead RabbitMQ service for %s: %v", MaskURL(cfg.URL), err)
		}
		delete(r.services, key)
	}

	svc := NewService(cfg, r.opts...)
	if err := svc.Open(ctx); err != nil {
		return nil, err
	}
	r.services[key] = svc
	return svc, nil
}

// Len returns the number of cached services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}

// CloseAll closes and forgets every cached service.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, svc := range r.services {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.services, key)
	}
	return errors.Join(errs...)
}
