// Package pending persists provisional registrations.
package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	"meldish/internal/identity/store/tx"
	id "meldish/pkg/domain"
)

const pendingColumns = `
	id, email, password_digest, user_type,
	country, timezone, language, first_name, last_name,
	user_id, verification_token, token_expires_at, created_at`

// PostgresStore is the relational pending-user store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed pending-user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.PendingUser) error {
	query := `
		INSERT INTO pending_users (` + pendingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Email, p.PasswordDigest, p.UserType,
		p.Country, p.Timezone, p.Language, p.FirstName, p.LastName,
		nullUserID(p.UserID), p.VerificationToken, p.TokenExpiresAt, p.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return store.ErrConflict
		}
		return fmt.Errorf("create pending user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.PendingUser) error {
	query := `
		UPDATE pending_users SET
			email = $2, verification_token = $3, token_expires_at = $4
		WHERE id = $1
	`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Email, p.VerificationToken, p.TokenExpiresAt)
	if err != nil {
		return fmt.Errorf("update pending user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pending user: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.PendingUser, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_users WHERE email = $1`
	return scanPending(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, email))
}

// FindByTokenForUpdate locks the row for the rest of the surrounding
// transaction. Concurrent verifications of one token serialize here; the
// second transaction sees the winner's delete and gets ErrNotFound.
func (s *PostgresStore) FindByTokenForUpdate(ctx context.Context, token string) (*models.PendingUser, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_users WHERE verification_token = $1 FOR UPDATE`
	return scanPending(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, token))
}

func (s *PostgresStore) Delete(ctx context.Context, pendingID id.PendingUserID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM pending_users WHERE id = $1`, uuid.UUID(pendingID))
	if err != nil {
		return fmt.Errorf("delete pending user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pending user: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM pending_users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete pending user by email: %w", err)
	}
	return nil
}

func scanPending(row *sql.Row) (*models.PendingUser, error) {
	var (
		p      models.PendingUser
		pid    uuid.UUID
		userID uuid.NullUUID
	)
	err := row.Scan(
		&pid, &p.Email, &p.PasswordDigest, &p.UserType,
		&p.Country, &p.Timezone, &p.Language, &p.FirstName, &p.LastName,
		&userID, &p.VerificationToken, &p.TokenExpiresAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan pending user: %w", err)
	}
	p.ID = id.PendingUserID(pid)
	if userID.Valid {
		p.UserID = id.UserID(userID.UUID)
	}
	return &p, nil
}

func nullUserID(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}
