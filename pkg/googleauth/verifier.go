package googleauth

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"google.golang.org/api/idtoken"
)

// Verifier resolves an opaque Google ID token to a verified email.
type Verifier interface {
	VerifyEmail(ctx context.Context, token string) (string, error)
}

type verifier struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// New builds a Verifier that checks tokens against the OAuth client id.
func New(clientID string) (Verifier, error) {
	audience := strings.TrimSpace(clientID)
	if audience == "" {
		return nil, errors.New("google client id is required")
	}
	return &verifier{audience: audience, validate: idtoken.Validate}, nil
}

func (v *verifier) VerifyEmail(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	payload, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid google token")
	}

	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "could not extract user email from token")
	}
	return email, nil
}
