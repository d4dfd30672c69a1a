package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a caller identity from the user directory. Elevated marks a
// platform-level administrative identity: cross-tenant visibility, but
// no application ownership.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Elevated  bool      `json:"elevated"`
	CreatedAt time.Time `json:"createdAt"`
}
