package controllers

import (
	"context"
	"net/http"

	"github.com/JEMsword1976/netflix-skipper/api/responses"
	"github.com/JEMsword1976/netflix-skipper/api/validators"
	"github.com/JEMsword1976/netflix-skipper/internal/licensing"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
)

type LicenseService interface {
	VerifyLicense(ctx context.Context, token string) (*licensing.VerifyResult, error)
	CheckStatus(ctx context.Context, token string) (*licensing.StatusResult, error)
}

type licenseTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyLicense resolves the caller's identity token to their license.
func VerifyLicense(svc LicenseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var req licenseTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifyLicense(r.Context(), req.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckLicenseStatus returns the full subscription snapshot the popup polls,
// running the expiry sweep along the way.
func CheckLicenseStatus(svc LicenseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var req licenseTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckStatus(r.Context(), req.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
