// Package user persists durable accounts and registration progress.
package user

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

const uniqueViolation = "23505"

const userColumns = `
	id, email, email_bucket, password_digest, user_type,
	is_active, is_email_verified, auth_provider,
	google_user_id, line_user_id, facebook_user_id,
	country, language, timezone,
	first_name, last_name, phone_number, picture_url,
	failed_login_attempts, account_locked_until, tenant_id,
	created_at, updated_at, last_login_at`

// PostgresStore is the relational user store. Uniqueness of
// (email, email_bucket) and of each provider id is enforced by the schema;
// violations surface as store.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Email, string(u.UserType.Bucket()), u.PasswordDigest, u.UserType,
		u.IsActive, u.IsEmailVerified, u.AuthProvider,
		nullString(u.GoogleUserID), nullString(u.LineUserID), nullString(u.FacebookUserID),
		u.Country, u.Language, u.Timezone,
		u.FirstName, u.LastName, u.PhoneNumber, u.PictureURL,
		u.FailedLoginAttempts, nullTime(u.AccountLockedUntil), nullUUID(uuid.UUID(u.TenantID)),
		u.CreatedAt, u.UpdatedAt, nullTime(u.LastLoginAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET
			email = $2, email_bucket = $3, password_digest = $4, user_type = $5,
			is_active = $6, is_email_verified = $7, auth_provider = $8,
			google_user_id = $9, line_user_id = $10, facebook_user_id = $11,
			country = $12, language = $13, timezone = $14,
			first_name = $15, last_name = $16, phone_number = $17, picture_url = $18,
			failed_login_attempts = $19, account_locked_until = $20,
			updated_at = $21, last_login_at = $22
		WHERE id = $1
	`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Email, string(u.UserType.Bucket()), u.PasswordDigest, u.UserType,
		u.IsActive, u.IsEmailVerified, u.AuthProvider,
		nullString(u.GoogleUserID), nullString(u.LineUserID), nullString(u.FacebookUserID),
		u.Country, u.Language, u.Timezone,
		u.FirstName, u.LastName, u.PhoneNumber, u.PictureURL,
		u.FailedLoginAttempts, nullTime(u.AccountLockedUntil),
		u.UpdatedAt, nullTime(u.LastLoginAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	return ensureFound(res, "update user")
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByEmailBucket(ctx context.Context, email string, bucket models.EmailBucket) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND email_bucket = $2`
	return scanUser(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, email, string(bucket)))
}

func (s *PostgresStore) FindByProviderID(ctx context.Context, provider models.AuthProvider, externalID string) (*models.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	return scanUser(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, externalID))
}

func (s *PostgresStore) CreateProgress(ctx context.Context, p *models.RegistrationProgress) error {
	query := `
		INSERT INTO registration_progress (user_id, user_type, step, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.UserID), p.UserType, p.Step, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, p *models.RegistrationProgress) error {
	query := `UPDATE registration_progress SET step = $2, updated_at = $3 WHERE user_id = $1`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.UserID), p.Step, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return ensureFound(res, "update progress")
}

func (s *PostgresStore) FindProgress(ctx context.Context, userID id.UserID) (*models.RegistrationProgress, error) {
	query := `SELECT user_id, user_type, step, updated_at FROM registration_progress WHERE user_id = $1`
	row := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID))

	var (
		p   models.RegistrationProgress
		uid uuid.UUID
	)
	if err := row.Scan(&uid, &p.UserType, &p.Step, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	p.UserID = id.UserID(uid)
	return &p, nil
}

func providerColumn(provider models.AuthProvider) (string, error) {
	switch provider {
	case models.ProviderGoogle:
		return "google_user_id", nil
	case models.ProviderLine:
		return "line_user_id", nil
	case models.ProviderFacebook:
		return "facebook_user_id", nil
	default:
		return "", fmt.Errorf("no external id column for provider %s", provider)
	}
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u                        models.User
		uid                      uuid.UUID
		bucket                   string
		googleID, lineID, fbID   sql.NullString
		lockedUntil, lastLoginAt sql.NullTime
		tenantID                 uuid.NullUUID
	)
	err := row.Scan(
		&uid, &u.Email, &bucket, &u.PasswordDigest, &u.UserType,
		&u.IsActive, &u.IsEmailVerified, &u.AuthProvider,
		&googleID, &lineID, &fbID,
		&u.Country, &u.Language, &u.Timezone,
		&u.FirstName, &u.LastName, &u.PhoneNumber, &u.PictureURL,
		&u.FailedLoginAttempts, &lockedUntil, &tenantID,
		&u.CreatedAt, &u.UpdatedAt, &lastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(uid)
	u.GoogleUserID = googleID.String
	u.LineUserID = lineID.String
	u.FacebookUserID = fbID.String
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.AccountLockedUntil = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		u.LastLoginAt = &t
	}
	if tenantID.Valid {
		u.TenantID = id.TenantID(tenantID.UUID)
	}
	return &u, nil
}

func ensureFound(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
