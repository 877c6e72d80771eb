package usecase

import (
	"context"

	"github.com/sd-owens/YelpCamp/internal/entity"
)

// EventPublisher publishes domain events. Publish failures are logged by
// the caller and never abort a state transition that already succeeded.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// AddressResolver turns a free-text address into coordinates and a
// formatted address.
type AddressResolver interface {
	Resolve(ctx context.Context, freeText string) (*entity.Location, error)
}

// Storage uploads binary objects and returns a public URL.
type Storage interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}
