package security

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixtures are self-signed for CN=cspublish-test
const fixtureThumbprint = "255F784711DA801543E832082AD565B12265E422"

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestLoadPKCS12(t *testing.T) {
	cert, err := LoadPKCS12(readFixture(t, "password1.pfx"), "Password1")
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)

	assert.Equal(t, "cspublish-test", cert.Leaf.Subject.CommonName)
	assert.NotNil(t, cert.PrivateKey)
	assert.Equal(t, fixtureThumbprint, Thumbprint(cert.Leaf))
}

func TestLoadPKCS12EmptyPassword(t *testing.T) {
	cert, err := LoadPKCS12(readFixture(t, "nopassword.pfx"), "")
	require.NoError(t, err)
	assert.Equal(t, fixtureThumbprint, Thumbprint(cert.Leaf))
}

func TestLoadPKCS12WrongPassword(t *testing.T) {
	_, err := LoadPKCS12(readFixture(t, "password1.pfx"), "nope")
	assert.Error(t, err)
}

func TestLoadPKCS12Garbage(t *testing.T) {
	_, err := LoadPKCS12([]byte("not a pfx"), "")
	assert.Error(t, err)
}

func TestThumbprintsEqual(t *testing.T) {
	assert.True(t, ThumbprintsEqual("875f1656a34d93b266e71bf19c116c39f16b6987", "875F1656A34D93B266E71BF19C116C39F16B6987"))
	assert.True(t, ThumbprintsEqual("25:5F:78:47", "255f7847"))
	assert.False(t, ThumbprintsEqual("AA", "AB"))
}

func TestCertExpiresSoon(t *testing.T) {
	assert.True(t, CertExpiresSoon(nil))
	assert.True(t, CertExpiresSoon(&x509.Certificate{NotAfter: time.Now().Add(24 * time.Hour)}))
	assert.False(t, CertExpiresSoon(&x509.Certificate{NotAfter: time.Now().Add(365 * 24 * time.Hour)}))
	assert.Equal(t, time.Duration(0), GetCertTimeRemaining(nil))
}
