package licensing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	"github.com/JEMsword1976/netflix-skipper/pkg/enums"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
)

type stubStore struct {
	records map[string]*Record
	getErr  error
	putErr  error
	puts    int
}

func newStubStore() *stubStore {
	return &stubStore{records: map[string]*Record{}}
}

func (s *stubStore) Get(_ context.Context, email string) (*Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (s *stubStore) Put(_ context.Context, rec *Record) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	clone := *rec
	s.records[rec.Email] = &clone
	return nil
}

type stubVerifier struct {
	email string
	err   error
}

func (v *stubVerifier) VerifyEmail(context.Context, string) (string, error) {
	return v.email, v.err
}

func newTestService(t *testing.T, store *stubStore, license config.LicenseConfig) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:      store,
		Verifier:   &stubVerifier{email: "user@example.com"},
		Reconciler: newTestReconciler(),
		License:    license,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func defaultLicenseConfig() config.LicenseConfig {
	return config.LicenseConfig{BillingCycleDays: 30, GraceDays: 5}
}

func TestVerifyLicenseCreatesRecordLazily(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store, defaultLicenseConfig())

	res, err := svc.VerifyLicense(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "none" {
		t.Fatalf("first-seen email should be none, got %q", res.Status)
	}
	if store.puts != 1 {
		t.Fatalf("expected exactly one persisted record, got %d", store.puts)
	}

	res, err = svc.VerifyLicense(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify again: %v", err)
	}
	if res.Status != "none" || store.puts != 1 {
		t.Fatalf("repeat verify must not rewrite the record: %q puts=%d", res.Status, store.puts)
	}
}

func TestVerifyLicensePremium(t *testing.T) {
	store := newStubStore()
	paid := time.Now().Add(-24 * time.Hour)
	store.records["user@example.com"] = &Record{
		Email:              "user@example.com",
		License:            enums.LicensePremium,
		SubscriptionStatus: enums.SubscriptionStatusMonthly,
		LastPaymentDate:    &paid,
	}
	svc := newTestService(t, store, defaultLicenseConfig())

	res, err := svc.VerifyLicense(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "premium" {
		t.Fatalf("expected premium, got %q", res.Status)
	}
}

func TestVerifyLicenseIdentityFailure(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Store:      newStubStore(),
		Verifier:   &stubVerifier{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid_token")},
		Reconciler: newTestReconciler(),
		License:    defaultLicenseConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.VerifyLicense(context.Background(), "bad"); err == nil {
		t.Fatalf("expected identity error to surface")
	}
}

func TestCheckStatusSweepsAndPersists(t *testing.T) {
	store := newStubStore()
	paid := time.Now().Add(-36 * 24 * time.Hour)
	store.records["user@example.com"] = &Record{
		Email:              "user@example.com",
		License:            enums.LicensePremium,
		SubscriptionStatus: enums.SubscriptionStatusMonthly,
		LastPaymentDate:    &paid,
	}
	svc := newTestService(t, store, defaultLicenseConfig())

	res, err := svc.CheckStatus(context.Background(), "tok")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if res.Status != "none" {
		t.Fatalf("expired record should report none, got %q", res.Status)
	}
	if res.SubscriptionStatus != "expired" || !res.NeedsRenewal {
		t.Fatalf("unexpected status payload %+v", res)
	}

	persisted := store.records["user@example.com"]
	if persisted.License != enums.LicenseNone || persisted.SubscriptionStatus != enums.SubscriptionStatusExpired {
		t.Fatalf("sweep result not persisted: %+v", persisted)
	}
}

func TestCheckStatusInsideGraceWindow(t *testing.T) {
	store := newStubStore()
	paid := time.Now().Add(-34 * 24 * time.Hour)
	store.records["user@example.com"] = &Record{
		Email:              "user@example.com",
		License:            enums.LicensePremium,
		SubscriptionStatus: enums.SubscriptionStatusYearly,
		LastPaymentDate:    &paid,
	}
	svc := newTestService(t, store, defaultLicenseConfig())

	res, err := svc.CheckStatus(context.Background(), "tok")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if res.Status != "premium" || res.SubscriptionStatus != "yearly" || res.NeedsRenewal {
		t.Fatalf("grace-window record misreported: %+v", res)
	}
	if store.puts != 0 {
		t.Fatalf("unchanged record must not be rewritten")
	}
}

func TestCheckStatusPastDueDoesNotSweep(t *testing.T) {
	store := newStubStore()
	past := time.Now().Add(-90 * 24 * time.Hour)
	store.records["user@example.com"] = &Record{
		Email:              "user@example.com",
		License:            enums.LicenseNone,
		SubscriptionStatus: enums.SubscriptionStatusPastDue,
		PastDueDate:        &past,
	}
	svc := newTestService(t, store, defaultLicenseConfig())

	res, err := svc.CheckStatus(context.Background(), "tok")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if res.SubscriptionStatus != "past_due" || !res.NeedsRenewal {
		t.Fatalf("past_due must hold until an explicit event: %+v", res)
	}
}

func TestTrialLifecycle(t *testing.T) {
	cfg := defaultLicenseConfig()
	cfg.TrialDays = 7

	store := newStubStore()
	svc := newTestService(t, store, cfg)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	res, err := svc.VerifyLicense(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "trial" {
		t.Fatalf("expected trial on first sight, got %q", res.Status)
	}
	if res.DaysLeft == nil || *res.DaysLeft != 7 {
		t.Fatalf("expected 7 days left, got %v", res.DaysLeft)
	}

	svc.now = func() time.Time { return start.Add(5*24*time.Hour + time.Hour) }
	res, _ = svc.VerifyLicense(context.Background(), "tok")
	if res.Status != "trial" || res.DaysLeft == nil || *res.DaysLeft != 2 {
		t.Fatalf("mid-trial report wrong: %q %v", res.Status, res.DaysLeft)
	}

	svc.now = func() time.Time { return start.Add(8 * 24 * time.Hour) }
	res, _ = svc.VerifyLicense(context.Background(), "tok")
	if res.Status != "expired" || res.DaysLeft != nil {
		t.Fatalf("exhausted trial should read expired: %q %v", res.Status, res.DaysLeft)
	}

	stored := store.records["user@example.com"]
	if stored.License != enums.LicenseTrial {
		t.Fatalf("exhausted trial must not mutate the stored record: %+v", stored)
	}
}

func TestTrialDisabledByDefault(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store, defaultLicenseConfig())

	res, err := svc.VerifyLicense(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "none" || res.DaysLeft != nil {
		t.Fatalf("trial must stay disabled without configuration: %+v", res)
	}
}

func TestCheckStatusStoreFailure(t *testing.T) {
	store := newStubStore()
	store.getErr = errors.New("redis down")
	svc := newTestService(t, store, defaultLicenseConfig())

	_, err := svc.CheckStatus(context.Background(), "tok")
	if err == nil {
		t.Fatalf("expected store failure to surface")
	}
	apiErr := pkgerrors.As(err)
	if apiErr == nil || apiErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency-coded error, got %v", err)
	}
}
