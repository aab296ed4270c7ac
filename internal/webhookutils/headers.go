package webhookutils

import (
	"net/http"
	"strings"
)

// GetHeaderCaseInsensitive retrieves a header value by scanning keys
// case-insensitively. http.Header.Get only matches canonicalized keys, and
// some proxies forward Slack's headers with their casing intact.
func GetHeaderCaseInsensitive(headers http.Header, key string) (string, bool) {
	if v := headers.Get(key); v != "" {
		return v, true
	}
	keyLower := strings.ToLower(key)
	for k, vs := range headers {
		if strings.ToLower(k) == keyLower && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

// SlackSignatureHeaders extracts the request timestamp and signature Slack
// attaches to every webhook delivery. Either may be empty when absent.
func SlackSignatureHeaders(headers http.Header) (timestamp, signature string) {
	timestamp, _ = GetHeaderCaseInsensitive(headers, "X-Slack-Request-Timestamp")
	signature, _ = GetHeaderCaseInsensitive(headers, "X-Slack-Signature")
	return timestamp, signature
}
