package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

// In-memory store fakes backing the handler tests.

type fakeApps struct {
	mu   sync.Mutex
	apps map[uuid.UUID]*model.Application
}

func newFakeApps() *fakeApps {
	return &fakeApps{apps: make(map[uuid.UUID]*model.Application)}
}

func (f *fakeApps) Create(_ context.Context, app *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	app.CreatedAt = time.Now().UTC()
	cp := *app
	f.apps[app.ID] = &cp
	return nil
}

func (f *fakeApps) GetByID(_ context.Context, id uuid.UUID) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[id]
	if !ok {
		return nil, nil
	}
	cp := *app
	cp.Members = append([]model.Member(nil), app.Members...)
	return &cp, nil
}

func (f *fakeApps) ListVisible(_ context.Context, userID uuid.UUID, elevated bool) ([]model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Application
	for _, app := range f.apps {
		if app.Deleted {
			continue
		}
		if elevated || app.OwnerUserID == userID {
			out = append(out, *app)
			continue
		}
		if _, ok := app.MemberRole(userID); ok {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (f *fakeApps) CountOwnedBy(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, app := range f.apps {
		if !app.Deleted && app.OwnerUserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeApps) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[id]
	if !ok || app.Deleted {
		return apperr.New(apperr.KindNotFound, "application not found")
	}
	now := time.Now().UTC()
	app.Deleted = true
	app.DeletedAt = &now
	return nil
}

// addMember is a test helper, not part of the store interface.
func (f *fakeApps) addMember(id uuid.UUID, m model.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[id].Members = append(f.apps[id].Members, m)
}

type fakeKeys struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*model.APIKey
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{keys: make(map[uuid.UUID]*model.APIKey)}
}

func (f *fakeKeys) Insert(_ context.Context, key *model.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	key.CreatedAt = time.Now().UTC()
	cp := *key
	f.keys[key.ID] = &cp
	return nil
}

func (f *fakeKeys) GetByHash(_ context.Context, hash string) (*model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range f.keys {
		if key.KeyHash == hash {
			cp := *key
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeKeys) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.APIKey
	for _, key := range f.keys {
		if key.ApplicationID == applicationID {
			out = append(out, *key)
		}
	}
	return out, nil
}

func (f *fakeKeys) Rotate(_ context.Context, applicationID uuid.UUID, newKey *model.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for _, key := range f.keys {
		if key.ApplicationID == applicationID && !key.Revoked {
			key.Revoked = true
			key.RotatedAt = &now
		}
	}
	if newKey.ID == uuid.Nil {
		newKey.ID = uuid.New()
	}
	newKey.CreatedAt = now
	cp := *newKey
	f.keys[newKey.ID] = &cp
	return nil
}

type fakeUsers struct {
	mu       sync.Mutex
	sessions map[string]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{sessions: make(map[string]*model.User)}
}

func (f *fakeUsers) GetBySessionToken(_ context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) addSession(token string, u model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = &u
}
