package controllers

import (
	"context"
	"net/http"

	"github.com/JEMsword1976/netflix-skipper/api/responses"
	"github.com/JEMsword1976/netflix-skipper/api/validators"
	"github.com/JEMsword1976/netflix-skipper/internal/checkout"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
)

type CheckoutService interface {
	CreatePaymentLink(ctx context.Context, email, plan string) (*checkout.PaymentLink, error)
	CreatePortalLink(ctx context.Context, email string) (*checkout.PortalLink, error)
}

type paymentLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
	Plan  string `json:"plan" validate:"required,oneof=monthly yearly"`
}

type portalLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreatePaymentLink opens a hosted checkout for the requested plan.
func CreatePaymentLink(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req paymentLinkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.CreatePaymentLink(r.Context(), req.Email, req.Plan)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// CreateCustomerPortalLink opens a customer portal session for the email.
func CreateCustomerPortalLink(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req portalLinkRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.CreatePortalLink(r.Context(), req.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}
