package paddlewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JEMsword1976/netflix-skipper/internal/licensing"
	"github.com/JEMsword1976/netflix-skipper/pkg/paddle"
)

// ErrUnresolvedEmail marks an event whose payload yielded no email through
// any extraction strategy. Callers acknowledge the delivery anyway.
var ErrUnresolvedEmail = errors.New("no email resolvable from event payload")

// ErrMalformedData marks a signed delivery whose data object does not decode.
// Retrying such a delivery cannot succeed, so callers drop it and ack.
var ErrMalformedData = errors.New("event data undecodable")

type customerLookup interface {
	GetCustomer(ctx context.Context, customerID string) (*paddle.Customer, error)
}

// Envelope is the outer shape of a provider webhook delivery.
type Envelope struct {
	EventType  string          `json:"event_type"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// ParseEnvelope decodes the raw webhook body.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	return &env, nil
}

// payload covers every data shape the provider has been observed to send.
// Events carry the email in different places depending on event type and
// API version, so extraction walks a fixed precedence list.
type payload struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Email      string           `json:"email"`
	CustomerID string           `json:"customer_id"`
	Customer   *payloadCustomer `json:"customer"`
	Items      []payloadItem    `json:"items"`
	// Custom data is arbitrary merchant JSON; values are filtered to
	// strings on extraction rather than constrained in the type.
	CustomData map[string]any `json:"custom_data"`
	// Older deliveries spelled the custom data key in camel case.
	LegacyCustomData map[string]any `json:"customData"`
}

type payloadCustomer struct {
	Email string `json:"email"`
}

type payloadItem struct {
	Email    string           `json:"email"`
	Customer *payloadCustomer `json:"customer"`
	Price    *payloadPrice    `json:"price"`
}

type payloadPrice struct {
	ID string `json:"id"`
}

// Normalizer turns provider envelopes into canonical license events.
type Normalizer struct {
	lookup customerLookup
}

// NewNormalizer builds a normalizer. lookup resolves a customer id to an
// email when the payload itself carries none; it may be nil, in which case
// strategy six is skipped.
func NewNormalizer(lookup customerLookup) *Normalizer {
	return &Normalizer{lookup: lookup}
}

// Normalize maps an envelope to a license event. The second return is false
// for event types the license state machine does not care about. A payload
// with no resolvable email returns ErrUnresolvedEmail.
func (n *Normalizer) Normalize(ctx context.Context, env *Envelope) (licensing.Event, bool, error) {
	kind, ok := eventKind(env.EventType)
	if !ok {
		return licensing.Event{}, false, nil
	}

	var data payload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return licensing.Event{}, false, fmt.Errorf("%w: %v", ErrMalformedData, err)
		}
	}

	email, err := n.resolveEmail(ctx, &data)
	if err != nil {
		return licensing.Event{}, false, err
	}

	return licensing.Event{
		Email:      email,
		Kind:       kind,
		PlanID:     planID(&data),
		ExternalID: data.ID,
		Status:     strings.ToLower(strings.TrimSpace(data.Status)),
		OccurredAt: env.OccurredAt,
	}, true, nil
}

func eventKind(eventType string) (licensing.EventKind, bool) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "transaction.completed":
		return licensing.KindTransactionCompleted, true
	case "subscription.cancelled", "subscription.canceled":
		return licensing.KindSubscriptionCancelled, true
	case "subscription.expired":
		return licensing.KindSubscriptionExpired, true
	case "subscription.updated":
		return licensing.KindSubscriptionUpdated, true
	default:
		return "", false
	}
}

// resolveEmail walks the extraction precedence: nested customer object,
// first item's customer, top-level email, first item's email, custom data,
// then a single customer lookup against the provider API.
func (n *Normalizer) resolveEmail(ctx context.Context, data *payload) (string, error) {
	if data.Customer != nil && data.Customer.Email != "" {
		return licensing.NormalizeEmail(data.Customer.Email), nil
	}
	if len(data.Items) > 0 {
		if c := data.Items[0].Customer; c != nil && c.Email != "" {
			return licensing.NormalizeEmail(c.Email), nil
		}
	}
	if data.Email != "" {
		return licensing.NormalizeEmail(data.Email), nil
	}
	if len(data.Items) > 0 && data.Items[0].Email != "" {
		return licensing.NormalizeEmail(data.Items[0].Email), nil
	}
	if v := customDataString(data.CustomData, "user_email"); v != "" {
		return licensing.NormalizeEmail(v), nil
	}
	if v := customDataString(data.LegacyCustomData, "user_email"); v != "" {
		return licensing.NormalizeEmail(v), nil
	}

	if data.CustomerID == "" || n.lookup == nil {
		return "", ErrUnresolvedEmail
	}
	customer, err := n.lookup.GetCustomer(ctx, data.CustomerID)
	if err != nil {
		var apiErr *paddle.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return "", ErrUnresolvedEmail
		}
		return "", fmt.Errorf("resolve customer %s: %w", data.CustomerID, err)
	}
	if customer == nil || customer.Email == "" {
		return "", ErrUnresolvedEmail
	}
	return licensing.NormalizeEmail(customer.Email), nil
}

func customDataString(values map[string]any, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func planID(data *payload) string {
	if len(data.Items) > 0 && data.Items[0].Price != nil {
		return data.Items[0].Price.ID
	}
	return ""
}
