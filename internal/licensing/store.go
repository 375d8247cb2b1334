package licensing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/JEMsword1976/netflix-skipper/pkg/redis"
)

// Store persists license records keyed by normalized email. A missing record
// is (nil, nil), not an error; records are never deleted.
type Store interface {
	Get(ctx context.Context, email string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
}

type kvClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	LicenseRecordKey(email string) string
}

type redisStore struct {
	kv kvClient
}

// NewRedisStore wraps the redis client as a license record store.
func NewRedisStore(kv kvClient) (Store, error) {
	if kv == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisStore{kv: kv}, nil
}

func (s *redisStore) Get(ctx context.Context, email string) (*Record, error) {
	key := s.kv.LicenseRecordKey(NormalizeEmail(email))
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load license record: %w", err)
	}
	return decodeRecord([]byte(raw))
}

func (s *redisStore) Put(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is required")
	}
	if NormalizeEmail(rec.Email) == "" {
		return errors.New("record email is required")
	}
	rec.Email = NormalizeEmail(rec.Email)

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode license record: %w", err)
	}
	key := s.kv.LicenseRecordKey(rec.Email)
	if err := s.kv.Set(ctx, key, string(payload), 0); err != nil {
		return fmt.Errorf("store license record: %w", err)
	}
	return nil
}

// decodeRecord tolerates the legacy encoding where the record was written as
// a JSON string containing JSON (the old backend stringified before set).
func decodeRecord(raw []byte) (*Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode legacy license record: %w", err)
		}
		raw = []byte(inner)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode license record: %w", err)
	}
	return &rec, nil
}
