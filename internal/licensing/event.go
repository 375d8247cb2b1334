package licensing

import (
	"time"

	"github.com/JEMsword1976/netflix-skipper/pkg/enums"
)

// EventKind is the canonical kind of a payment-provider event after
// normalization. Provider event names that don't map here are ignored.
type EventKind string

const (
	KindTransactionCompleted  EventKind = "transaction_completed"
	KindSubscriptionCancelled EventKind = "subscription_cancelled"
	KindSubscriptionExpired   EventKind = "subscription_expired"
	KindSubscriptionUpdated   EventKind = "subscription_updated"
)

// Event is the normalized (email, kind, plan, timestamp) tuple the reconciler
// consumes. Status carries the provider's subscription status for
// subscription_updated events; it is empty otherwise.
type Event struct {
	Email      string
	Kind       EventKind
	PlanID     string
	ExternalID string
	Status     string
	OccurredAt time.Time
}

// PlanClassifier maps provider price ids onto subscription statuses.
type PlanClassifier struct {
	MonthlyPriceID string
	YearlyPriceID  string
}

// Classify maps a plan id to the subscription status it grants. Unknown
// non-empty plan ids classify as plain "active".
func (c PlanClassifier) Classify(planID string) enums.SubscriptionStatus {
	switch {
	case planID == "":
		return enums.SubscriptionStatusActive
	case planID == c.MonthlyPriceID:
		return enums.SubscriptionStatusMonthly
	case planID == c.YearlyPriceID:
		return enums.SubscriptionStatusYearly
	default:
		return enums.SubscriptionStatusActive
	}
}
