// Package keyring issues and verifies application API keys. Raw keys
// are random, prefixed, and never stored: only an HMAC (keyed by a
// server-side secret) and a short display preview persist.
package keyring

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/logwell/logwell/internal/apperr"
)

const (
	// KeyPrefix marks raw keys so the auth middleware can tell API
	// keys apart from session tokens.
	KeyPrefix = "lw_"

	rawKeyBytes     = 32
	minSecretLength = 32
)

// Keyring derives key hashes from a server-side secret. The secret
// never appears in the keys themselves.
type Keyring struct {
	secret []byte
}

// New builds a Keyring. An absent or short secret is a configuration
// error; callers must treat it as fatal at startup rather than
// discovering it per request.
func New(secret string) (*Keyring, error) {
	if len(secret) < minSecretLength {
		return nil, apperr.New(apperr.KindConfiguration,
			"API key secret is missing or shorter than 32 bytes")
	}
	return &Keyring{secret: []byte(secret)}, nil
}

// IssueKey generates a new raw key together with its stored hash and
// display preview. The raw key must be shown to the caller exactly
// once and then discarded.
func (k *Keyring) IssueKey() (raw, hash, preview string, err error) {
	buf := make([]byte, rawKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", apperr.Wrap(apperr.KindWrite, "generate key entropy", err)
	}
	raw = KeyPrefix + hex.EncodeToString(buf)
	return raw, k.Hash(raw), Preview(raw), nil
}

// Hash computes the stored HMAC-SHA256 digest of a raw key.
func (k *Keyring) Hash(raw string) string {
	mac := hmac.New(sha256.New, k.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC for raw and compares it to storedHash in
// constant time.
func (k *Keyring) Verify(raw, storedHash string) bool {
	return hmac.Equal([]byte(k.Hash(raw)), []byte(storedHash))
}

// Preview returns the UI-safe preview of a raw key: first six and last
// four characters.
func Preview(raw string) string {
	if len(raw) < 10 {
		return raw
	}
	return raw[:6] + "..." + raw[len(raw)-4:]
}
