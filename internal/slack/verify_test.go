package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify_ValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier("test-secret")
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"event_callback"}`)
	ts := "1700000000"

	if !v.Verify(ts, signBody("test-secret", ts, body), body) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerify_WrongSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier("test-secret")
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"event_callback"}`)

	if v.Verify("1700000000", "v0=deadbeef", body) {
		t.Error("expected bogus signature to be rejected")
	}
}

func TestVerify_StaleTimestampRejectedEvenWithValidHMAC(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier("test-secret")
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"event_callback"}`)

	tests := map[string]struct {
		timestamp string
		want      bool
	}{
		"exactly at window edge":  {timestamp: "1699999700", want: true},
		"just outside window":     {timestamp: "1699999699", want: false},
		"far in the past":         {timestamp: "1600000000", want: false},
		"future beyond window":    {timestamp: "1700000301", want: false},
		"future inside window":    {timestamp: "1700000200", want: true},
		"non-numeric timestamp":   {timestamp: "not-a-number", want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			sig := signBody("test-secret", tt.timestamp, body)
			if got := v.Verify(tt.timestamp, sig, body); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.timestamp, got, tt.want)
			}
		})
	}
}

func TestVerify_MissingSecretFailsClosed(t *testing.T) {
	v := NewVerifier("")

	if v.Configured() {
		t.Error("expected Configured to report false for empty secret")
	}

	body := []byte("{}")
	ts := "1700000000"
	if v.Verify(ts, signBody("", ts, body), body) {
		t.Error("expected verification to fail closed with no secret")
	}
}
