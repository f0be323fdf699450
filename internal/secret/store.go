// store.go

package secret

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/communityshare/server/internal/core"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const createQuery = `
	INSERT INTO secrets (key, info, expires_at)
	VALUES ($1, $2, $3)
	RETURNING key, info, expires_at, used, date_created`

// Create mints a new secret carrying info, valid for durationHours.
func (s *Store) Create(
	ctx context.Context,
	info map[string]any,
	durationHours int,
) (*Secret, error) {
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode secret payload: %w", core.ErrInvalidInput)
	}

	key, err := core.GenerateSecretKey(KeyLength)
	if err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(durationHours) * time.Hour)

	var out Secret
	err = s.db.GetContext(ctx, &out, createQuery, key, payload, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert secret: %w", err)
	}

	return &out, nil
}

const lookupQuery = `
	SELECT key, info, expires_at, used, date_created
	FROM secrets
	WHERE key = $1`

// Lookup fetches a secret without claiming it. Used and expired
// secrets fail with their respective sentinel errors.
func (s *Store) Lookup(ctx context.Context, key string) (*Secret, error) {
	var out Secret

	err := s.db.GetContext(ctx, &out, lookupQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("secret: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup secret: %w", err)
	}

	if err := out.Validate(time.Now()); err != nil {
		return nil, err
	}

	return &out, nil
}

const consumeQuery = `
	UPDATE secrets
	SET used = TRUE
	WHERE key = $1 AND NOT used AND expires_at > NOW()
	RETURNING key, info, expires_at, used, date_created`

// Consume atomically claims a secret. The guard in the UPDATE ensures
// two concurrent consumers cannot both succeed.
func (s *Store) Consume(ctx context.Context, key string) (*Secret, error) {
	var out Secret

	err := s.db.GetContext(ctx, &out, consumeQuery, key)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume secret: %w", err)
	}

	// Nothing claimed; look the row up to report why.
	if _, lookupErr := s.Lookup(ctx, key); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, fmt.Errorf("secret: %w", core.ErrTokenInvalid)
}

const purgeQuery = `
	DELETE FROM secrets
	WHERE expires_at < $1`

// PurgeExpired removes secrets that expired before cutoff.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, purgeQuery, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge secrets: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge secrets: %w", err)
	}
	return n, nil
}
