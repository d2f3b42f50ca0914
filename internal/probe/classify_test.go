package probe

import (
	"crypto/x509"
	"errors"
	"fmt"
	"testing"

	"densiview/internal/domain"
)

// TestClassifyStructuredCertError verifies typed x509 failures map to sslError
// without consulting the substring heuristic.
func TestClassifyStructuredCertError(t *testing.T) {
	err := fmt.Errorf("probe backend: %w", x509.UnknownAuthorityError{})
	if got := Classify(err); got != domain.FailureClassSSL {
		t.Fatalf("Classify = %q, want sslError", got)
	}
}

// TestClassifySubstrings covers the message-scanning fallback for errors with
// no structured type.
func TestClassifySubstrings(t *testing.T) {
	cases := []struct {
		msg  string
		want domain.FailureClass
	}{
		{"net::ERR_CERT_DATE_INVALID", domain.FailureClassSSL},
		{"tls: handshake failure", domain.FailureClassSSL},
		{"blocked by CORS policy", domain.FailureClassCORS},
		{"No Access-Control-Allow-Origin header present", domain.FailureClassCORS},
		{"TypeError: Failed to fetch", domain.FailureClassNetwork},
		{"dial tcp 10.0.0.1:443: connection refused", domain.FailureClassNetwork},
	}

	for _, tc := range cases {
		if got := Classify(errors.New(tc.msg)); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

// TestClassifyNil verifies a nil error is not a failure.
func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != domain.FailureClassOK {
		t.Fatalf("Classify(nil) = %q, want ok", got)
	}
}
