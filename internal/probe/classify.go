package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"

	"densiview/internal/domain"
)

// sslMarkers and corsMarkers drive the substring fallback. Scanning error
// text is fragile and kept only as a last resort for errors that carry no
// structured type, e.g. messages relayed verbatim from a proxy.
var (
	sslMarkers  = []string{"CERT", "SSL", "TLS", "certificate", "x509"}
	corsMarkers = []string{"CORS", "Access-Control-Allow-Origin", "cross-origin"}
)

// Classify maps a connectivity failure to its class. Structured error types
// are checked first; the substring heuristic only runs when none match.
// A nil error classifies as ok.
func Classify(err error) domain.FailureClass {
	if err == nil {
		return domain.FailureClassOK
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostnameErr      x509.HostnameError
		certInvalid      x509.CertificateInvalidError
		verifyErr        *tls.CertificateVerificationError
		recordHeaderErr  tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &unknownAuthority),
		errors.As(err, &hostnameErr),
		errors.As(err, &certInvalid),
		errors.As(err, &verifyErr),
		errors.As(err, &recordHeaderErr):
		return domain.FailureClassSSL
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureClassNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureClassNetwork
	}

	msg := err.Error()
	for _, marker := range sslMarkers {
		if containsFold(msg, marker) {
			return domain.FailureClassSSL
		}
	}
	for _, marker := range corsMarkers {
		if containsFold(msg, marker) {
			return domain.FailureClassCORS
		}
	}
	return domain.FailureClassNetwork
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
