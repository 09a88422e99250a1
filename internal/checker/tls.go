package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

// versionSSL30 is the legacy SSL 3.0 protocol version, defined locally so the
// deprecated tls.VersionSSL30 symbol is not referenced.
const versionSSL30 uint16 = 0x0300

// weakCipherSuites lists suites reported as warnings when negotiated.
var weakCipherSuites = map[uint16]string{
	tls.TLS_RSA_WITH_RC4_128_SHA:                "TLS_RSA_WITH_RC4_128_SHA",
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:           "TLS_RSA_WITH_3DES_EDE_CBC_SHA",
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:            "TLS_RSA_WITH_AES_128_CBC_SHA",
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:            "TLS_RSA_WITH_AES_256_CBC_SHA",
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:        "TLS_ECDHE_ECDSA_WITH_RC4_128_SHA",
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:          "TLS_ECDHE_RSA_WITH_RC4_128_SHA",
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA:     "TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA",
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256: "TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256",
}

// tlsInspection is the outcome of one handshake: the certificate report plus
// any protocol warnings worth surfacing on the website result.
type tlsInspection struct {
	Info     scan.CertInfo
	Warnings []string
}

// inspectTLS performs its own handshake against host:port and verifies the
// presented chain for host. A nil roots pool means the system roots. Handshake
// failures are reported in Info.Error; they never fail the assessment.
func inspectTLS(ctx context.Context, host, port string, roots *x509.CertPool, timeout time.Duration) tlsInspection {
	if timeout <= 0 {
		timeout = consts.DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		// Verification happens below so an untrusted chain is still described.
		Config: &tls.Config{InsecureSkipVerify: true, ServerName: host}, // #nosec G402
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return tlsInspection{Info: scan.CertInfo{Error: fmt.Sprintf("TLS handshake failed: %v", err)}}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	return describeConnection(&state, host, roots, time.Now())
}

// describeConnection builds the certificate report for a completed handshake.
func describeConnection(state *tls.ConnectionState, host string, roots *x509.CertPool, now time.Time) tlsInspection {
	var out tlsInspection
	if state == nil || len(state.PeerCertificates) == 0 {
		out.Info.Error = "no peer certificate presented"
		return out
	}

	leaf := state.PeerCertificates[0]
	out.Info = scan.CertInfo{
		Subject:     certName(leaf.Subject.CommonName, leaf.Subject.Organization),
		Issuer:      certName(leaf.Issuer.CommonName, leaf.Issuer.Organization),
		Version:     leaf.Version,
		NotBefore:   leaf.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:    leaf.NotAfter.UTC().Format(time.RFC3339),
		DNSNames:    leaf.DNSNames,
		TLSVersion:  tlsVersionString(state.Version),
		CipherSuite: cipherSuiteString(state.CipherSuite),
		ExpiresSoon: leaf.NotAfter.Sub(now) < consts.TLSSoonExpiryWindow,
	}

	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	if err != nil {
		out.Info.VerifyError = err.Error()
	} else {
		out.Info.Valid = !now.Before(leaf.NotBefore) && !now.After(leaf.NotAfter)
	}

	if state.Version < tls.VersionTLS12 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Outdated protocol negotiated: %s", out.Info.TLSVersion))
	}
	if name, ok := weakCipherSuites[state.CipherSuite]; ok {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Weak cipher suite negotiated: %s", name))
	}
	if out.Info.ExpiresSoon && out.Info.Valid {
		out.Warnings = append(out.Warnings, "TLS certificate expires soon")
	}
	return out
}

func certName(cn string, org []string) *scan.CertName {
	name := &scan.CertName{CN: cn}
	if len(org) > 0 {
		name.O = org[0]
	}
	return name
}

// tlsVersionString converts TLS version constant to string
func tlsVersionString(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

// cipherSuiteString converts cipher suite constant to string
func cipherSuiteString(suite uint16) string {
	if name, ok := weakCipherSuites[suite]; ok {
		return name
	}
	if name := tls.CipherSuiteName(suite); name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
