package licensing

import (
	"strings"
	"time"

	"github.com/JEMsword1976/netflix-skipper/pkg/enums"
)

// Record is the per-email license state. The email is the natural key and the
// JSON field names match what earlier deployments wrote, so old values stored
// by the legacy backend deserialize without migration.
type Record struct {
	Email              string                   `json:"email"`
	License            enums.License            `json:"license"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscriptionStatus,omitempty"`

	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	TrialStartDate  *time.Time `json:"trialStartDate,omitempty"`
	CancelledDate   *time.Time `json:"cancelledDate,omitempty"`
	ExpiredDate     *time.Time `json:"expiredDate,omitempty"`
	PastDueDate     *time.Time `json:"pastDueDate,omitempty"`

	PaddleTransactionID string `json:"paddleTransactionId,omitempty"`
}

// NewRecord creates the lazily-initialized record for a first-seen email.
func NewRecord(email string) *Record {
	return &Record{
		Email:              NormalizeEmail(email),
		License:            enums.LicenseNone,
		SubscriptionStatus: enums.SubscriptionStatusNone,
	}
}

// NormalizeEmail lowercases and trims an email for use as a storage key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Status returns the effective subscription status, mapping the zero value to
// "none" for records written before the field existed.
func (r *Record) Status() enums.SubscriptionStatus {
	if r == nil || r.SubscriptionStatus == "" {
		return enums.SubscriptionStatusNone
	}
	return r.SubscriptionStatus
}

// NeedsRenewal reports whether the UI should prompt the user to renew.
func (r *Record) NeedsRenewal() bool {
	status := r.Status()
	return status == enums.SubscriptionStatusPastDue || status == enums.SubscriptionStatusExpired
}

// terminalDate returns when the record entered its current terminal status.
func (r *Record) terminalDate() *time.Time {
	switch r.Status() {
	case enums.SubscriptionStatusCancelled:
		return r.CancelledDate
	case enums.SubscriptionStatusExpired:
		return r.ExpiredDate
	case enums.SubscriptionStatusPastDue:
		return r.PastDueDate
	}
	return nil
}
