package exchange

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Signer builds the authenticated payload envelope for private endpoints.
// Each Sign call injects a fresh UUIDv4 nonce, so a payload signed twice
// never produces the same envelope or signature.
type Signer struct {
	accessToken string
	secretKey   string
}

// NewSigner creates a signer for the given credentials. Empty credentials
// are tolerated; signed calls will simply be rejected by the exchange.
func NewSigner(accessToken, secretKey string) *Signer {
	return &Signer{accessToken: accessToken, secretKey: secretKey}
}

// Sign serializes the payload with access token and nonce attached,
// base64-encodes it and computes an HMAC-SHA512 signature over the encoded
// bytes, rendered as lowercase hex.
func (s *Signer) Sign(payload map[string]any) (encoded, signature string, err error) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["access_token"] = s.accessToken
	body["nonce"] = uuid.New().String()

	// encoding/json emits object keys sorted, which serves as the
	// canonical form for signing.
	raw, err := json.Marshal(body)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal signed payload")
	}

	encoded = base64.StdEncoding.EncodeToString(raw)

	mac := hmac.New(sha512.New, []byte(s.secretKey))
	mac.Write([]byte(encoded))
	signature = hex.EncodeToString(mac.Sum(nil))

	return encoded, signature, nil
}
