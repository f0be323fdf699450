// secret.go

package secret

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/communityshare/server/internal/core"
)

// KeyLength is the fixed length of every secret key.
const KeyLength = 128

// Secret is a single-use, time-limited token. The payload is an opaque
// JSON object describing what the token authorizes, e.g.
// {"userId": 7, "action": "api_key"}.
type Secret struct {
	Key         string          `db:"key"`
	InfoJSON    json.RawMessage `db:"info"`
	ExpiresAt   time.Time       `db:"expires_at"`
	Used        bool            `db:"used"`
	DateCreated time.Time       `db:"date_created"`
}

func (s *Secret) Info() (map[string]any, error) {
	var info map[string]any
	if err := json.Unmarshal(s.InfoJSON, &info); err != nil {
		return nil, fmt.Errorf("decode secret payload: %w", err)
	}
	return info, nil
}

func (s *Secret) expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Validate reports whether the secret is still claimable.
func (s *Secret) Validate(now time.Time) error {
	if s.Used {
		return fmt.Errorf("secret already used: %w", core.ErrTokenUsed)
	}
	if s.expired(now) {
		return fmt.Errorf("secret expired: %w", core.ErrTokenExpired)
	}
	return nil
}
