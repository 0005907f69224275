package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `user_id, session_id, security_token, facilities, token_expiration, last_login_date, last_activity`

// GetByUserID returns the session for userID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1`, userID)
	return scanSession(row)
}

// GetByUserIDAndToken returns the session matching both userID and token, or nil.
func (r *PostgresRepository) GetByUserIDAndToken(ctx context.Context, userID, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1 AND security_token = $2`, userID, token)
	return scanSession(row)
}

// GetBySessionIDAndToken returns the session matching both sessionID and token, or nil.
func (r *PostgresRepository) GetBySessionIDAndToken(ctx context.Context, sessionID, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE session_id = $1 AND security_token = $2`, sessionID, token)
	return scanSession(row)
}

// Create persists the session. The user_id primary key enforces the
// single-session-per-user invariant at the storage layer; a concurrent insert
// for the same user fails instead of producing two live rows.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.UserID, s.SessionID, s.SecurityToken, s.Facilities, s.TokenExpiration, s.LastLoginDate, s.LastActivity)
	return err
}

// UpdateToken sets a freshly minted token, its expiration, and the recomputed
// facilities for the given session.
func (r *PostgresRepository) UpdateToken(ctx context.Context, sessionID, token, expiration, facilities string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET security_token = $2, token_expiration = $3, facilities = $4 WHERE session_id = $1`,
		sessionID, token, expiration, facilities)
	return err
}

// UpdateLastActivity sets the session's last-activity timestamp only; token
// and expiration are untouched.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET last_activity = $2 WHERE session_id = $1`, sessionID, at)
	return err
}

// Remove deletes the session for userID. Deleting an absent row is a no-op.
func (r *PostgresRepository) Remove(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.UserID, &s.SessionID, &s.SecurityToken, &s.Facilities,
		&s.TokenExpiration, &s.LastLoginDate, &s.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
