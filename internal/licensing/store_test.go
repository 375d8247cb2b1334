package licensing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/JEMsword1976/netflix-skipper/pkg/enums"
	pkgredis "github.com/JEMsword1976/netflix-skipper/pkg/redis"
)

type mapKV struct {
	values map[string]string
	getErr error
	setErr error
}

func newMapKV() *mapKV {
	return &mapKV{values: map[string]string{}}
}

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (m *mapKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value.(string)
	return nil
}

func (m *mapKV) LicenseRecordKey(email string) string {
	return "skipper:license:" + email
}

func TestStoreRoundTrip(t *testing.T) {
	kv := newMapKV()
	store, err := NewRedisStore(kv)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	paid := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	rec := NewRecord("User@Example.com")
	rec.License = enums.LicensePremium
	rec.SubscriptionStatus = enums.SubscriptionStatusYearly
	rec.LastPaymentDate = &paid
	rec.PaddleTransactionID = "txn_abc"

	if err := store.Put(context.Background(), rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := kv.values["skipper:license:user@example.com"]; !ok {
		t.Fatalf("record stored under unexpected key: %v", kv.values)
	}

	got, err := store.Get(context.Background(), "USER@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record")
	}
	if got.Email != "user@example.com" || got.License != enums.LicensePremium {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.LastPaymentDate == nil || !got.LastPaymentDate.Equal(paid) {
		t.Fatalf("payment date lost: %+v", got.LastPaymentDate)
	}
	if got.PaddleTransactionID != "txn_abc" {
		t.Fatalf("transaction id lost")
	}
}

func TestStoreMissReturnsNil(t *testing.T) {
	store, _ := NewRedisStore(newMapKV())
	rec, err := store.Get(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("miss must not error: %v", err)
	}
	if rec != nil {
		t.Fatalf("miss must return nil record, got %+v", rec)
	}
}

func TestStoreDecodesLegacyDoubleEncoding(t *testing.T) {
	kv := newMapKV()
	store, _ := NewRedisStore(kv)

	inner := `{"email":"old@example.com","license":"premium","subscriptionStatus":"monthly"}`
	wrapped, err := json.Marshal(inner)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	kv.values["skipper:license:old@example.com"] = string(wrapped)

	rec, err := store.Get(context.Background(), "old@example.com")
	if err != nil {
		t.Fatalf("get legacy: %v", err)
	}
	if rec == nil || rec.License != enums.LicensePremium || rec.SubscriptionStatus != enums.SubscriptionStatusMonthly {
		t.Fatalf("legacy record misread: %+v", rec)
	}
}

func TestStoreRejectsEmptyEmail(t *testing.T) {
	store, _ := NewRedisStore(newMapKV())
	if err := store.Put(context.Background(), &Record{Email: "   "}); err == nil {
		t.Fatalf("expected error for blank email")
	}
	if err := store.Put(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
}
