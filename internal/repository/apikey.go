package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

// KeyRepository persists API keys. Raw keys never reach this layer;
// only hashes and previews are stored.
type KeyRepository struct {
	pool *pgxpool.Pool
}

// NewKeyRepository returns a KeyRepository using the given pool.
func NewKeyRepository(pool *pgxpool.Pool) *KeyRepository {
	return &KeyRepository{pool: pool}
}

// Insert stores a new key row.
func (r *KeyRepository) Insert(ctx context.Context, key *model.APIKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO api_keys (id, application_id, key_hash, key_preview)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		key.ID,
		key.ApplicationID,
		key.KeyHash,
		key.KeyPreview,
	).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "insert api key", err)
	}
	return nil
}

// GetByHash returns the key with the given hash, or nil if unknown.
// Revoked keys are returned with Revoked set; authenticating with them
// is the caller's decision to refuse.
func (r *KeyRepository) GetByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, application_id, key_hash, key_preview, revoked, rotated_at, created_at
		FROM api_keys WHERE key_hash = $1`, hash).Scan(
		&key.ID,
		&key.ApplicationID,
		&key.KeyHash,
		&key.KeyPreview,
		&key.Revoked,
		&key.RotatedAt,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindWrite, "get api key", err)
	}
	return &key, nil
}

// ListByApplication returns every key row for one application, newest
// first. Hashes are included; callers expose previews only.
func (r *KeyRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.APIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, key_hash, key_preview, revoked, rotated_at, created_at
		FROM api_keys WHERE application_id = $1
		ORDER BY created_at DESC`, applicationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWrite, "list api keys", err)
	}
	defer rows.Close()

	var list []model.APIKey
	for rows.Next() {
		var key model.APIKey
		if err := rows.Scan(
			&key.ID,
			&key.ApplicationID,
			&key.KeyHash,
			&key.KeyPreview,
			&key.Revoked,
			&key.RotatedAt,
			&key.CreatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindWrite, "scan api key", err)
		}
		list = append(list, key)
	}
	return list, rows.Err()
}

// Rotate revokes every active key for the application and inserts the
// replacement in one transaction, so the caller observes either both
// steps or neither.
func (r *KeyRepository) Rotate(ctx context.Context, applicationID uuid.UUID, newKey *model.APIKey) error {
	if newKey.ID == uuid.Nil {
		newKey.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "begin rotate", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE api_keys SET revoked = true, rotated_at = $2
		WHERE application_id = $1 AND NOT revoked`, applicationID, now); err != nil {
		return apperr.Wrap(apperr.KindWrite, "revoke previous keys", err)
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO api_keys (id, application_id, key_hash, key_preview)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		newKey.ID,
		newKey.ApplicationID,
		newKey.KeyHash,
		newKey.KeyPreview,
	).Scan(&newKey.ID, &newKey.CreatedAt); err != nil {
		return apperr.Wrap(apperr.KindWrite, "insert rotated key", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindWrite, "commit rotate", err)
	}
	return nil
}

// Revoke marks one key revoked by id.
func (r *KeyRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE api_keys SET revoked = true WHERE id = $1 AND NOT revoked`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "revoke api key", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "api key not found")
	}
	return nil
}
