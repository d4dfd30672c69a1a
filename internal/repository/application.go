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

// ApplicationRepository persists applications and their memberships.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository returns an ApplicationRepository using the given pool.
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

// Create inserts a new application and returns it with ID and CreatedAt set.
func (r *ApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	query := `
		INSERT INTO applications (id, name, environment, owner_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		app.ID,
		app.Name,
		app.Environment,
		app.OwnerUserID,
	).Scan(&app.ID, &app.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "create application", err)
	}
	return nil
}

// GetByID returns one application with its members, or nil if the id
// is unknown. Soft-deleted rows are returned too; visibility is the
// resolver's concern, not the repository's.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, environment, owner_user_id, deleted, deleted_at, created_at
		FROM applications WHERE id = $1`, id).Scan(
		&app.ID,
		&app.Name,
		&app.Environment,
		&app.OwnerUserID,
		&app.Deleted,
		&app.DeletedAt,
		&app.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindWrite, "get application", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT user_id, role FROM application_members WHERE application_id = $1`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWrite, "get application members", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, apperr.Wrap(apperr.KindWrite, "scan member", err)
		}
		app.Members = append(app.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindWrite, "read members", err)
	}
	return &app, nil
}

// ListVisible returns non-deleted applications the user owns or is a
// member of, newest first. Elevated callers see every non-deleted
// application; soft-deleted rows never appear in any listing.
func (r *ApplicationRepository) ListVisible(ctx context.Context, userID uuid.UUID, elevated bool) ([]model.Application, error) {
	query := `
		SELECT DISTINCT a.id, a.name, a.environment, a.owner_user_id, a.deleted, a.deleted_at, a.created_at
		FROM applications a
		LEFT JOIN application_members m ON m.application_id = a.id
		WHERE NOT a.deleted AND ($2 OR a.owner_user_id = $1 OR m.user_id = $1)
		ORDER BY a.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID, elevated)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWrite, "list applications", err)
	}
	defer rows.Close()

	var list []model.Application
	for rows.Next() {
		var app model.Application
		if err := rows.Scan(
			&app.ID,
			&app.Name,
			&app.Environment,
			&app.OwnerUserID,
			&app.Deleted,
			&app.DeletedAt,
			&app.CreatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindWrite, "scan application", err)
		}
		list = append(list, app)
	}
	return list, rows.Err()
}

// CountOwnedBy returns the number of non-deleted applications owned by
// userID, used to enforce the per-user cap.
func (r *ApplicationRepository) CountOwnedBy(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM applications WHERE owner_user_id = $1 AND NOT deleted`, userID).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindWrite, "count applications", err)
	}
	return n, nil
}

// AddMember inserts one membership row.
func (r *ApplicationRepository) AddMember(ctx context.Context, applicationID uuid.UUID, m model.Member) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_members (application_id, user_id, role)
		VALUES ($1, $2, $3)`, applicationID, m.UserID, m.Role)
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "add member", err)
	}
	return nil
}

// SoftDelete marks the application deleted. The row is never removed.
func (r *ApplicationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications SET deleted = true, deleted_at = $2
		WHERE id = $1 AND NOT deleted`, id, time.Now().UTC())
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "soft delete application", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "application not found")
	}
	return nil
}
