package paddle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the HTTP header Paddle signs webhook deliveries with.
const SignatureHeader = "Paddle-Signature"

var (
	ErrSignatureMissing = errors.New("paddle signature header missing")
	ErrSignatureFormat  = errors.New("paddle signature header malformed")
	ErrSignatureInvalid = errors.New("paddle signature mismatch")
	ErrSignatureExpired = errors.New("paddle signature timestamp outside allowed skew")
)

// SignatureVerifier validates Paddle-Signature headers against a shared secret.
// Paddle signs `ts:rawBody` with HMAC-SHA256 and sends `ts=...;h1=...`.
type SignatureVerifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

func NewSignatureVerifier(secret string, maxSkew time.Duration) *SignatureVerifier {
	return &SignatureVerifier{
		secret:  []byte(secret),
		maxSkew: maxSkew,
		now:     time.Now,
	}
}

// Verify checks the signature header against the raw request body. The body
// must be the exact bytes received on the wire, never a re-serialized form.
func (v *SignatureVerifier) Verify(header string, rawBody []byte) error {
	if v == nil {
		return errors.New("signature verifier not initialized")
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrSignatureMissing
	}

	ts, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if v.maxSkew > 0 {
		eventTime := time.Unix(ts, 0)
		if delta := v.now().Sub(eventTime); delta > v.maxSkew || delta < -v.maxSkew {
			return ErrSignatureExpired
		}
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d:", ts)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// Sign produces a valid header for the body; used by tests and local tooling.
func (v *SignatureVerifier) Sign(ts time.Time, rawBody []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d:", ts.Unix())
	mac.Write(rawBody)
	return fmt.Sprintf("ts=%d;h1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var ts int64 = -1
	var signatures []string
	for _, part := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, ErrSignatureFormat
		}
		switch key {
		case "ts":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrSignatureFormat
			}
			ts = parsed
		case "h1":
			signatures = append(signatures, value)
		}
	}
	if ts < 0 || len(signatures) == 0 {
		return 0, nil, ErrSignatureFormat
	}
	return ts, signatures, nil
}
