package paddlewebhook

import (
	"context"
	"errors"
	"time"

	"github.com/JEMsword1976/netflix-skipper/internal/licensing"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/metrics"
)

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	Store      licensing.Store
	Reconciler *licensing.Reconciler
	Normalizer *Normalizer
	Guard      *IdempotencyGuard
	Metrics    *metrics.LicenseMetrics
	Logger     *logger.Logger
}

// Service applies provider webhook deliveries to license records. Every
// delivery that passes signature verification is acknowledged; the only
// errors surfaced to the caller are persistence failures, where a retry from
// the provider is the recovery path.
type Service struct {
	store      licensing.Store
	reconciler *licensing.Reconciler
	normalizer *Normalizer
	guard      *IdempotencyGuard
	metrics    *metrics.LicenseMetrics
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "license store required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Normalizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "normalizer required")
	}
	return &Service{
		store:      params.Store,
		reconciler: params.Reconciler,
		normalizer: params.Normalizer,
		guard:      params.Guard,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// HandleEvent processes one verified delivery: dedupe by event id, normalize,
// reconcile, persist. A nil return means the delivery should be acknowledged.
func (s *Service) HandleEvent(ctx context.Context, env *Envelope) error {
	if env == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event envelope required")
	}
	if env.EventID != "" {
		ctx = s.withEventID(ctx, env.EventID)
	}

	if s.guard != nil && env.EventID != "" {
		duplicate, err := s.guard.CheckAndMark(ctx, env.EventID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim event id")
		}
		if duplicate {
			s.metrics.IncWebhookEvent(metrics.WebhookOutcomeDuplicate)
			s.info(ctx, "duplicate webhook delivery dropped")
			return nil
		}
	}

	if err := s.processEvent(ctx, env); err != nil {
		// Give the event id back so the provider's retry is not deduped
		// against a delivery that never landed.
		if s.guard != nil && env.EventID != "" {
			if relErr := s.guard.Release(ctx, env.EventID); relErr != nil && s.logg != nil {
				s.logg.Error(ctx, "release event id claim", relErr)
			}
		}
		s.metrics.IncWebhookEvent(metrics.WebhookOutcomeError)
		return err
	}
	return nil
}

func (s *Service) processEvent(ctx context.Context, env *Envelope) error {
	ev, relevant, err := s.normalizer.Normalize(ctx, env)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnresolvedEmail):
			s.metrics.IncWebhookEvent(metrics.WebhookOutcomeUnresolved)
			if s.logg != nil {
				s.logg.Warn(ctx, "webhook event dropped: no resolvable email")
			}
			return nil
		case errors.Is(err, ErrMalformedData):
			// A retry delivers the same bytes; only a fresh provider send
			// can fix this, so the delivery is dropped and acked.
			s.metrics.IncWebhookEvent(metrics.WebhookOutcomeMalformed)
			if s.logg != nil {
				s.logg.Warn(ctx, "webhook event dropped: undecodable data")
			}
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "normalize webhook event")
	}
	if !relevant {
		s.metrics.IncWebhookEvent(metrics.WebhookOutcomeNoop)
		return nil
	}

	rec, err := s.store.Get(ctx, ev.Email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load license record")
	}
	created := rec == nil
	if created {
		rec = licensing.NewRecord(ev.Email)
	}

	changed := s.reconciler.Apply(rec, ev, s.now())
	if changed || created {
		if err := s.store.Put(ctx, rec); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist license record")
		}
	}

	if changed {
		s.metrics.IncWebhookEvent(metrics.WebhookOutcomeProcessed)
		s.info(s.withEmail(ctx, rec.Email), "license record reconciled")
	} else {
		s.metrics.IncWebhookEvent(metrics.WebhookOutcomeNoop)
	}
	return nil
}

func (s *Service) withEventID(ctx context.Context, eventID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithEventID(ctx, eventID)
}

func (s *Service) withEmail(ctx context.Context, email string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithEmail(ctx, email)
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}
