package licensing

import (
	"time"

	"github.com/JEMsword1976/netflix-skipper/pkg/enums"
)

// Reconciler applies normalized provider events and poll-time expiry sweeps
// to a license record. It is a pure state machine: every method mutates only
// the record it is handed, and re-applying the same event leaves nothing but
// refreshed timestamps behind. That idempotency is the only defense against
// the provider's at-least-once delivery.
type Reconciler struct {
	classifier  PlanClassifier
	expiryAfter time.Duration
}

// NewReconciler builds a reconciler. expiryAfter is how long a premium record
// survives without a payment before the sweep expires it (billing cycle plus
// grace period).
func NewReconciler(classifier PlanClassifier, expiryAfter time.Duration) *Reconciler {
	return &Reconciler{classifier: classifier, expiryAfter: expiryAfter}
}

// Apply merges one event into the record. It reports whether the record
// changed; absorbed or unrecognized events leave it untouched.
func (r *Reconciler) Apply(rec *Record, ev Event, now time.Time) bool {
	if rec == nil {
		return false
	}

	switch ev.Kind {
	case KindTransactionCompleted:
		return r.activate(rec, ev, now, true)
	case KindSubscriptionCancelled:
		return r.terminate(rec, enums.SubscriptionStatusCancelled, now)
	case KindSubscriptionExpired:
		return r.terminate(rec, enums.SubscriptionStatusExpired, now)
	case KindSubscriptionUpdated:
		return r.applyUpdated(rec, ev, now)
	default:
		return false
	}
}

// Sweep runs the poll-time expiry check: a premium record whose last payment
// is older than the expiry window flips to none/expired. past_due never
// transitions here; that requires an explicit provider event.
func (r *Reconciler) Sweep(rec *Record, now time.Time) bool {
	if rec == nil || rec.License != enums.LicensePremium {
		return false
	}
	if rec.LastPaymentDate == nil {
		return false
	}
	if now.Sub(*rec.LastPaymentDate) <= r.expiryAfter {
		return false
	}
	return r.terminate(rec, enums.SubscriptionStatusExpired, now)
}

func (r *Reconciler) applyUpdated(rec *Record, ev Event, now time.Time) bool {
	switch ev.Status {
	case "active":
		return r.activate(rec, ev, now, false)
	case "cancelled", "canceled":
		return r.terminate(rec, enums.SubscriptionStatusCancelled, now)
	case "expired":
		return r.terminate(rec, enums.SubscriptionStatusExpired, now)
	case "past_due":
		return r.terminate(rec, enums.SubscriptionStatusPastDue, now)
	default:
		return false
	}
}

// activate grants premium. Terminal records absorb stale activations: once a
// record is cancelled/expired/past_due, only an event that occurred after the
// terminal transition can reactivate it. Events without a usable timestamp
// count as fresh, so a genuine re-purchase always goes through.
func (r *Reconciler) activate(rec *Record, ev Event, now time.Time, withTransactionID bool) bool {
	if rec.Status().IsTerminal() {
		if terminal := rec.terminalDate(); terminal != nil && !ev.OccurredAt.IsZero() && !ev.OccurredAt.After(*terminal) {
			return false
		}
	}

	paymentAt := now
	rec.License = enums.LicensePremium
	rec.SubscriptionStatus = r.classifier.Classify(ev.PlanID)
	rec.LastPaymentDate = &paymentAt
	if withTransactionID && ev.ExternalID != "" {
		rec.PaddleTransactionID = ev.ExternalID
	}
	return true
}

func (r *Reconciler) terminate(rec *Record, status enums.SubscriptionStatus, now time.Time) bool {
	at := now
	rec.License = enums.LicenseNone
	rec.SubscriptionStatus = status
	switch status {
	case enums.SubscriptionStatusCancelled:
		rec.CancelledDate = &at
	case enums.SubscriptionStatusExpired:
		rec.ExpiredDate = &at
	case enums.SubscriptionStatusPastDue:
		rec.PastDueDate = &at
	}
	return true
}
