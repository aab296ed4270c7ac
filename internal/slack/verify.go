package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// maxTimestampSkew is the replay window: requests whose timestamp differs from
// the current time by more than this are rejected even if the HMAC matches.
const maxTimestampSkew = 300 * time.Second

// Verifier validates that an inbound request genuinely originated from Slack.
type Verifier struct {
	signingSecret string
	now           func() time.Time
}

// NewVerifier creates a Verifier with the given signing secret. An empty
// secret is tolerated at construction time but fails every verification,
// so a missing secret can never silently allow traffic through.
func NewVerifier(signingSecret string) *Verifier {
	return &Verifier{
		signingSecret: signingSecret,
		now:           time.Now,
	}
}

// Configured reports whether a signing secret is present. Callers should treat
// false as a fatal configuration error rather than a soft verification failure.
func (v *Verifier) Configured() bool {
	return v.signingSecret != ""
}

// Verify recomputes the v0 signature over the raw request body and compares it
// against the supplied signature header. It fails closed on a missing secret
// and rejects timestamps outside the replay window.
func (v *Verifier) Verify(timestamp, signature string, rawBody []byte) bool {
	if v.signingSecret == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	skew := v.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > maxTimestampSkew {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.signingSecret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, rawBody)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
