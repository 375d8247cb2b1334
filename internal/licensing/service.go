package licensing

import (
	"context"
	"math"
	"time"

	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	"github.com/JEMsword1976/netflix-skipper/pkg/enums"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/googleauth"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/metrics"
)

// VerifyResult is the payload for the verify-license endpoint.
type VerifyResult struct {
	Status   string `json:"status"`
	DaysLeft *int   `json:"daysLeft,omitempty"`
}

// StatusResult is the payload for the check-license-status endpoint.
type StatusResult struct {
	Status             string     `json:"status"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	LastPaymentDate    *time.Time `json:"lastPaymentDate"`
	NeedsRenewal       bool       `json:"needsRenewal"`
	DaysLeft           *int       `json:"daysLeft,omitempty"`
}

// ServiceParams groups dependencies for the license service.
type ServiceParams struct {
	Store      Store
	Verifier   googleauth.Verifier
	Reconciler *Reconciler
	License    config.LicenseConfig
	Metrics    *metrics.LicenseMetrics
	Logger     *logger.Logger
}

// Service answers license verification and status polls for the extension.
type Service struct {
	store      Store
	verifier   googleauth.Verifier
	reconciler *Reconciler
	license    config.LicenseConfig
	metrics    *metrics.LicenseMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the license service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "license store required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity verifier required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	return &Service{
		store:      params.Store,
		verifier:   params.Verifier,
		reconciler: params.Reconciler,
		license:    params.License,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// VerifyLicense resolves the identity token to an email, lazily creates the
// record on first sight, and returns the effective license.
func (s *Service) VerifyLicense(ctx context.Context, token string) (*VerifyResult, error) {
	rec, err := s.loadOrCreate(ctx, token)
	if err != nil {
		return nil, err
	}

	status, daysLeft := s.effectiveLicense(rec)
	return &VerifyResult{Status: status, DaysLeft: daysLeft}, nil
}

// CheckStatus runs the expiry sweep, persists the record if it changed, and
// returns the full status payload the popup polls for.
func (s *Service) CheckStatus(ctx context.Context, token string) (*StatusResult, error) {
	rec, err := s.loadOrCreate(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if s.reconciler.Sweep(rec, now) {
		if err := s.store.Put(ctx, rec); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist expired record")
		}
		s.metrics.IncSweepExpiry()
		if s.logg != nil {
			s.logg.Info(s.logg.WithEmail(ctx, rec.Email), "license expired by sweep")
		}
	}

	status, daysLeft := s.effectiveLicense(rec)
	s.metrics.IncLicenseCheck(status)

	return &StatusResult{
		Status:             status,
		SubscriptionStatus: rec.Status().String(),
		LastPaymentDate:    rec.LastPaymentDate,
		NeedsRenewal:       rec.NeedsRenewal(),
		DaysLeft:           daysLeft,
	}, nil
}

func (s *Service) loadOrCreate(ctx context.Context, token string) (*Record, error) {
	email, err := s.verifier.VerifyEmail(ctx, token)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load license record")
	}
	if rec != nil {
		return rec, nil
	}

	rec = NewRecord(email)
	if s.license.TrialEnabled() {
		start := s.now()
		rec.License = enums.LicenseTrial
		rec.TrialStartDate = &start
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create license record")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithEmail(ctx, rec.Email), "license record created")
	}
	return rec, nil
}

// effectiveLicense reports the license the extension should honor right now.
// An exhausted trial reads as expired without mutating the stored record.
func (s *Service) effectiveLicense(rec *Record) (string, *int) {
	if rec.License == "" {
		return enums.LicenseNone.String(), nil
	}
	if rec.License == enums.LicenseTrial && s.license.TrialEnabled() && rec.TrialStartDate != nil {
		elapsed := s.now().Sub(*rec.TrialStartDate)
		remaining := s.license.TrialPeriod() - elapsed
		if remaining <= 0 {
			return enums.SubscriptionStatusExpired.String(), nil
		}
		days := int(math.Ceil(remaining.Hours() / 24))
		return enums.LicenseTrial.String(), &days
	}
	return rec.License.String(), nil
}
