package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/JEMsword1976/netflix-skipper/internal/licensing"
	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/paddle"
)

type paddleClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (*paddle.Customer, error)
	CreateTransaction(ctx context.Context, req paddle.CreateTransactionRequest) (*paddle.Transaction, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*paddle.PortalSession, error)
}

// PaymentLink is the hosted checkout URL handed back to the extension.
type PaymentLink struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// PortalLink is the customer-portal URL for managing a subscription.
type PortalLink struct {
	URL string `json:"url"`
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Paddle paddleClient
	Config config.PaddleConfig
	Logger *logger.Logger
}

// Service creates checkout transactions and portal sessions. It carries no
// license logic; entitlement changes arrive later through webhooks.
type Service struct {
	paddle paddleClient
	cfg    config.PaddleConfig
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Paddle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paddle client required")
	}
	return &Service{paddle: params.Paddle, cfg: params.Config, logg: params.Logger}, nil
}

// CreatePaymentLink opens a transaction for the plan's price and returns the
// hosted checkout URL. The buyer email rides along as custom data so webhook
// events stay attributable even when the provider omits the customer object.
func (s *Service) CreatePaymentLink(ctx context.Context, email, plan string) (*PaymentLink, error) {
	email = licensing.NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	priceID, err := s.priceForPlan(plan)
	if err != nil {
		return nil, err
	}

	txn, err := s.paddle.CreateTransaction(ctx, paddle.CreateTransactionRequest{
		Items:      []paddle.TransactionItem{{PriceID: priceID, Quantity: 1}},
		Customer:   &paddle.CustomerRef{Email: email},
		CustomData: map[string]string{"user_email": email},
	})
	if err != nil {
		return nil, providerError(err, "create checkout transaction")
	}
	if txn == nil || txn.Checkout.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction has no checkout url")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithEmail(ctx, email), "checkout transaction created")
	}
	return &PaymentLink{CheckoutURL: txn.Checkout.URL}, nil
}

// CreatePortalLink resolves the customer by email and opens a portal session.
// An email with no Paddle customer behind it is a 404, not a provider fault.
func (s *Service) CreatePortalLink(ctx context.Context, email string) (*PortalLink, error) {
	email = licensing.NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	customer, err := s.paddle.FindCustomerByEmail(ctx, email)
	if err != nil {
		var apiErr *paddle.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no customer for email")
		}
		return nil, providerError(err, "find customer")
	}

	session, err := s.paddle.CreatePortalSession(ctx, customer.ID, s.cfg.PortalReturn)
	if err != nil {
		return nil, providerError(err, "create portal session")
	}
	url := session.OverviewURL()
	if url == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "portal session has no url")
	}
	return &PortalLink{URL: url}, nil
}

func (s *Service) priceForPlan(plan string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case "monthly":
		return s.cfg.PriceMonthly, nil
	case "yearly":
		return s.cfg.PriceYearly, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "plan must be monthly or yearly")
	}
}

// providerError keeps the provider's diagnostic body visible to the caller.
func providerError(err error, message string) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	var apiErr *paddle.APIError
	if errors.As(err, &apiErr) {
		return wrapped.WithDetails(apiErr.Body)
	}
	return wrapped
}
