package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/crypto"
)

func newCert(t *testing.T, validity time.Duration) (*tls.Certificate, crypto.AccountID) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	acc, err := crypto.AccountIDFromPublicKey(pub)
	require.NoError(t, err)

	c, err := New(priv, validity)
	require.NoError(t, err)
	return c, acc
}

func TestNewCertificate(t *testing.T) {
	c, acc := newCert(t, 24*time.Hour)
	require.NotNil(t, c.Leaf)

	require.Len(t, c.Leaf.DNSNames, 1)
	name := c.Leaf.DNSNames[0]
	assert.Len(t, name, 53)
	assert.Equal(t, byte('r'), name[0])
	assert.Equal(t, DNSName(acc), name)

	parsed, err := x509.ParseCertificate(c.Leaf.Raw)
	require.NoError(t, err)
	assert.Equal(t, x509.PureEd25519, parsed.SignatureAlgorithm)
}

func TestValidateReturnsAccount(t *testing.T) {
	c, acc := newCert(t, 24*time.Hour)

	got, err := NewValidator().Validate(c.Leaf)
	require.NoError(t, err)
	assert.Equal(t, acc, got)

	got, err = NewValidator().PeerAccount(tls.ConnectionState{PeerCertificates: []*x509.Certificate{c.Leaf}})
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestValidateFailures(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		tamper func(c *x509.Certificate)
		now    time.Time
		err    error
	}{
		{
			name: "mismatched public key",
			tamper: func(c *x509.Certificate) {
				other, _, _ := ed25519.GenerateKey(rand.Reader)
				c.PublicKey = other
			},
			now: now,
			err: ErrInvalidCertificate,
		},
		{
			name:   "two dns names",
			tamper: func(c *x509.Certificate) { c.DNSNames = append(c.DNSNames, "example.org") },
			now:    now,
			err:    ErrInvalidCertificate,
		},
		{
			name:   "wrong prefix",
			tamper: func(c *x509.Certificate) { c.DNSNames[0] = "e" + c.DNSNames[0][1:] },
			now:    now,
			err:    ErrInvalidCertificate,
		},
		{
			name:   "wrong algorithm",
			tamper: func(c *x509.Certificate) { c.SignatureAlgorithm = x509.SHA256WithRSA },
			now:    now,
			err:    ErrInvalidCertificate,
		},
		{
			name:   "expired",
			tamper: func(*x509.Certificate) {},
			now:    now.Add(48 * time.Hour),
			err:    ErrCertificateExpired,
		},
		{
			name:   "not yet valid",
			tamper: func(*x509.Certificate) {},
			now:    now.Add(-time.Hour),
			err:    ErrNotYetValid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newCert(t, 24*time.Hour)
			tc.tamper(c.Leaf)

			v := &Validator{now: func() time.Time { return tc.now }}
			_, err := v.Validate(c.Leaf)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestPeerAccountWithoutCertificate(t *testing.T) {
	_, err := NewValidator().PeerAccount(tls.ConnectionState{})
	assert.ErrorIs(t, err, ErrInvalidCertificate)
}
