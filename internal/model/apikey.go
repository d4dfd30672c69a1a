package model

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is an ingest credential for one application. The raw key is
// returned to the caller exactly once, at creation or rotation; only
// the HMAC hash and a display preview persist.
type APIKey struct {
	ID            uuid.UUID  `json:"id"`
	ApplicationID uuid.UUID  `json:"applicationId"`
	KeyHash       string     `json:"-"`
	KeyPreview    string     `json:"keyPreview"`
	Revoked       bool       `json:"revoked"`
	RotatedAt     *time.Time `json:"rotatedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
