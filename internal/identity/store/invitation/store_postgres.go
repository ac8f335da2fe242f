// Package invitation persists staff invitations.
package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	"meldish/internal/identity/store/tx"
	id "meldish/pkg/domain"
)

const invitationColumns = `
	id, token, email, first_name, last_name, language, country,
	user_id, tenant_id, invited_by,
	is_used, registered_user_id, created_at, expires_at, used_at`

// PostgresStore is the relational staff-invitation store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed invitation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inv *models.StaffInvitation) error {
	query := `
		INSERT INTO staff_invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(inv.ID), inv.Token, inv.Email, inv.FirstName, inv.LastName,
		inv.Language, inv.Country,
		uuid.UUID(inv.UserID), uuid.UUID(inv.TenantID), uuid.UUID(inv.InvitedBy),
		inv.IsUsed, nullUserID(inv.RegisteredUserID), inv.CreatedAt, inv.ExpiresAt,
		nullTime(inv.UsedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return store.ErrConflict
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.StaffInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM staff_invitations WHERE token = $1`
	return scanInvitation(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, token))
}

func (s *PostgresStore) FindByID(ctx context.Context, invitationID id.InvitationID) (*models.StaffInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM staff_invitations WHERE id = $1`
	return scanInvitation(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(invitationID)))
}

// Consume flips is_used conditionally so exactly one activation wins. The
// WHERE clause is the concurrency control: a second consumer matches zero
// rows and gets ErrConflict.
func (s *PostgresStore) Consume(ctx context.Context, invitationID id.InvitationID, registeredUser id.UserID, usedAt time.Time) error {
	query := `
		UPDATE staff_invitations
		SET is_used = TRUE, registered_user_id = $2, used_at = $3
		WHERE id = $1 AND is_used = FALSE
	`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(invitationID), uuid.UUID(registeredUser), usedAt)
	if err != nil {
		return fmt.Errorf("consume invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume invitation: %w", err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func scanInvitation(row *sql.Row) (*models.StaffInvitation, error) {
	var (
		inv            models.StaffInvitation
		invID          uuid.UUID
		userID         uuid.UUID
		tenantID       uuid.UUID
		invitedBy      uuid.UUID
		registeredUser uuid.NullUUID
		usedAt         sql.NullTime
	)
	err := row.Scan(
		&invID, &inv.Token, &inv.Email, &inv.FirstName, &inv.LastName,
		&inv.Language, &inv.Country,
		&userID, &tenantID, &invitedBy,
		&inv.IsUsed, &registeredUser, &inv.CreatedAt, &inv.ExpiresAt, &usedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	inv.ID = id.InvitationID(invID)
	inv.UserID = id.UserID(userID)
	inv.TenantID = id.TenantID(tenantID)
	inv.InvitedBy = id.UserID(invitedBy)
	if registeredUser.Valid {
		inv.RegisteredUserID = id.UserID(registeredUser.UUID)
	}
	if usedAt.Valid {
		t := usedAt.Time
		inv.UsedAt = &t
	}
	return &inv, nil
}

func nullUserID(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
