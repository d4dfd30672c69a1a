package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/logwell/logwell/internal/logstore"
	"github.com/logwell/logwell/internal/model"
)

// Store interfaces consumed by the handlers. The pgx repositories and
// the file log store implement them; tests swap in in-memory fakes.

type ApplicationStore interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	ListVisible(ctx context.Context, userID uuid.UUID, elevated bool) ([]model.Application, error)
	CountOwnedBy(ctx context.Context, userID uuid.UUID) (int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type KeyStore interface {
	Insert(ctx context.Context, key *model.APIKey) error
	GetByHash(ctx context.Context, hash string) (*model.APIKey, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.APIKey, error)
	Rotate(ctx context.Context, applicationID uuid.UUID, newKey *model.APIKey) error
}

type UserStore interface {
	GetBySessionToken(ctx context.Context, token string) (*model.User, error)
}

type LogStore interface {
	Append(ctx context.Context, rec model.LogRecord) error
	Query(ctx context.Context, f logstore.Filter) ([]model.LogRecord, error)
}

type Broadcaster interface {
	Broadcast(applicationID string, rec model.LogRecord)
}
