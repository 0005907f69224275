package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a client repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByClientID returns the client registration for clientID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByClientID(ctx context.Context, clientID string) (*domain.ClientConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT client_id, client_secret_hash, pass_code_hash, encryption_key, created_at
		 FROM client_configs WHERE client_id = $1`, clientID)
	var c domain.ClientConfig
	err := row.Scan(&c.ClientID, &c.ClientSecretHash, &c.PassCodeHash, &c.EncryptionKey, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persists the client registration.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.ClientConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_configs (client_id, client_secret_hash, pass_code_hash, encryption_key, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ClientID, c.ClientSecretHash, c.PassCodeHash, c.EncryptionKey, c.CreatedAt)
	return err
}
