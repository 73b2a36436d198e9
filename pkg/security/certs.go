package security

import (
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

const (
	// Warn about a management certificate with less than 30 days remaining
	certExpiryWarningThreshold = 30 * 24 * time.Hour
)

// LoadPKCS12 decodes a PFX blob into a TLS client certificate.
// Leaf is populated so callers can inspect expiry and thumbprint.
func LoadPKCS12(data []byte, password string) (*tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 data: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return nil, fmt.Errorf("failed to build key pair: %w", err)
	}

	// Parse certificate to populate Leaf field
	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		cert.Leaf = leaf
	}

	return &cert, nil
}

// Thumbprint returns the SHA-1 fingerprint of cert as upper-case hex, the
// form used to reference certificates in service configurations
func Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// ThumbprintsEqual compares two thumbprints ignoring case and separators
func ThumbprintsEqual(a, b string) bool {
	return normalizeThumbprint(a) == normalizeThumbprint(b)
}

func normalizeThumbprint(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(":", "", " ", "").Replace(s)
}

// CertExpiresSoon returns true if less than 30 days remain until expiry
func CertExpiresSoon(cert *x509.Certificate) bool {
	if cert == nil {
		return true
	}
	return GetCertTimeRemaining(cert) < certExpiryWarningThreshold
}

// GetCertTimeRemaining returns the time remaining until certificate expiry
func GetCertTimeRemaining(cert *x509.Certificate) time.Duration {
	if cert == nil {
		return 0
	}
	return time.Until(cert.NotAfter)
}
