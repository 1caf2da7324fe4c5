package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
)

// CredentialRepository persists linked-service tokens, one row per (user, service).
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get loads the credential for (userID, service). Returns [shared.ErrNotLinked] when none exists.
func (r *CredentialRepository) Get(ctx context.Context, userID int64, service models.Service) (*models.Credential, error) {
	query := `
		SELECT user_id, service, access_token, refresh_token, expires_at, created_at, updated_at
		FROM user_services
		WHERE user_id = $1 AND service = $2
	`

	var (
		cred      models.Credential
		svc       string
		refresh   sql.NullString
		expiresAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, userID, string(service)).Scan(
		&cred.UserID, &svc, &cred.AccessToken, &refresh, &expiresAt, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotLinked
	}
	if err != nil {
		return nil, shared.NewStoreError("query credential", err)
	}

	cred.Service = models.Service(svc)
	cred.RefreshToken = refresh.String
	cred.ExpiresAt = timePtr(expiresAt)
	return &cred, nil
}

// Upsert inserts or replaces the credential for (UserID, Service).
//
// An empty refresh token keeps the stored one: providers only return a refresh token on first consent.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	query := `
		INSERT INTO user_services (user_id, service, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, service) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, user_services.refresh_token),
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var refresh *string
	if cred.RefreshToken != "" {
		refresh = &cred.RefreshToken
	}

	_, err := r.db.ExecContext(ctx, query,
		cred.UserID, string(cred.Service), cred.AccessToken, nullString(refresh), cred.ExpiresAt, ts, ts,
	)
	if err != nil {
		return shared.NewStoreError("upsert credential", err)
	}

	cred.UpdatedAt = ts
	return nil
}

// UpdateTokens stores a refreshed access token. A non-empty refreshToken replaces the stored one (rotation).
func (r *CredentialRepository) UpdateTokens(ctx context.Context, userID int64, service models.Service, accessToken, refreshToken string, expiresAt *time.Time) error {
	query := `
		UPDATE user_services
		SET access_token = $1,
			refresh_token = COALESCE($2, refresh_token),
			expires_at = $3,
			updated_at = $4
		WHERE user_id = $5 AND service = $6
	`

	var refresh *string
	if refreshToken != "" {
		refresh = &refreshToken
	}

	result, err := r.db.ExecContext(ctx, query, accessToken, nullString(refresh), expiresAt, now(), userID, string(service))
	if err != nil {
		return shared.NewStoreError("update credential tokens", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return shared.NewStoreError("update credential tokens", err)
	}
	if rows == 0 {
		return shared.ErrNotLinked
	}
	return nil
}

// Linked reports whether a credential exists for (userID, service).
func (r *CredentialRepository) Linked(ctx context.Context, userID int64, service models.Service) (bool, error) {
	query := `SELECT COUNT(*) FROM user_services WHERE user_id = $1 AND service = $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, string(service)).Scan(&count); err != nil {
		return false, shared.NewStoreError("query credential", err)
	}
	return count > 0, nil
}

// LinkedServices returns the services a user has linked, in name order.
func (r *CredentialRepository) LinkedServices(ctx context.Context, userID int64) ([]models.Service, error) {
	query := `SELECT service FROM user_services WHERE user_id = $1 ORDER BY service ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, shared.NewStoreError("query linked services", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc string
		if err := rows.Scan(&svc); err != nil {
			return nil, shared.NewStoreError("scan linked service", err)
		}
		services = append(services, models.Service(svc))
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewStoreError("iterate linked services", err)
	}
	return services, nil
}
