package repository

import (
	"context"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/domain"
)

// Repository provides access to registered API client configurations.
type Repository interface {
	// GetByClientID returns the client registration, or nil if not found.
	GetByClientID(ctx context.Context, clientID string) (*domain.ClientConfig, error)
	// Create persists a new client registration.
	Create(ctx context.Context, c *domain.ClientConfig) error
}
