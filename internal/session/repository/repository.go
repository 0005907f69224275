package repository

import (
	"context"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/domain"
)

// Repository defines persistence for user sessions. All lookups are exact
// matches on indexed keys; absent rows are (nil, nil), not errors.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Session, error)
	GetByUserIDAndToken(ctx context.Context, userID, token string) (*domain.Session, error)
	GetBySessionIDAndToken(ctx context.Context, sessionID, token string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	UpdateToken(ctx context.Context, sessionID, token, expiration, facilities string) error
	UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error
	Remove(ctx context.Context, userID string) error
}
