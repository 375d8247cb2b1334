package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/JEMsword1976/netflix-skipper/api/responses"
	paddlewebhook "github.com/JEMsword1976/netflix-skipper/internal/webhooks/paddle"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/paddle"
)

type PaddleWebhookService interface {
	HandleEvent(ctx context.Context, env *paddlewebhook.Envelope) error
}

type signatureVerifier interface {
	Verify(header string, rawBody []byte) error
}

// PaddleWebhook receives provider lifecycle events. Signature verification
// runs over the raw body before any JSON parsing. Bad signatures are
// rejected; everything else is acknowledged so the provider does not retry
// events the license state machine chose to ignore.
func PaddleWebhook(svc PaddleWebhookService, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := verifier.Verify(r.Header.Get(paddle.SignatureHeader), payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook signature"))
			return
		}

		env, err := paddlewebhook.ParseEnvelope(payload)
		if err != nil {
			// Malformed but correctly signed payloads are acknowledged;
			// retrying them cannot succeed.
			if logg != nil {
				logg.Warn(ctx, "malformed webhook payload dropped")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, env); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
