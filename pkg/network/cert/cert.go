package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/eigerco/remitchain/internal/crypto"
)

// DNSNamePrefix is prepended to the encoded account id in certificate DNS names.
const DNSNamePrefix = "r"

// dnsNameLength is the prefix plus 52 base32 characters for 32 bytes.
const dnsNameLength = 53

var (
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrCertificateExpired = errors.New("certificate has expired")
	ErrNotYetValid        = errors.New("certificate is not yet valid")
)

var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// DNSName encodes an account id into the single DNS name a certificate
// for that account carries.
func DNSName(acc crypto.AccountID) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(acc[:])
}

// New creates a self-signed certificate for the account owning key. Nodes
// and relayers present it on both sides of the connection, so the certificate
// is valid for server and client authentication.
func New(key ed25519.PrivateKey, validity time.Duration) (*tls.Certificate, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not ed25519", ErrInvalidCertificate)
	}
	acc, err := crypto.AccountIDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	dnsName := DNSName(acc)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: dnsName,
		},
		DNSNames:  []string{dnsName},
		NotBefore: now,
		NotAfter:  now.Add(validity),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// Validator checks peer certificates and recovers the account they belong to.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate accepts a certificate that is signed with ed25519, carries exactly
// one DNS name matching its public key, and is within its validity period.
// The returned account is the authenticated identity of the peer.
func (v *Validator) Validate(c *x509.Certificate) (crypto.AccountID, error) {
	if c.SignatureAlgorithm != x509.PureEd25519 {
		return crypto.AccountID{}, fmt.Errorf("%w: signature algorithm %s", ErrInvalidCertificate, c.SignatureAlgorithm)
	}
	pub, ok := c.PublicKey.(ed25519.PublicKey)
	if !ok {
		return crypto.AccountID{}, fmt.Errorf("%w: public key is not ed25519", ErrInvalidCertificate)
	}
	acc, err := crypto.AccountIDFromPublicKey(pub)
	if err != nil {
		return crypto.AccountID{}, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	if len(c.DNSNames) != 1 {
		return crypto.AccountID{}, fmt.Errorf("%w: want one DNS name, got %d", ErrInvalidCertificate, len(c.DNSNames))
	}
	name := c.DNSNames[0]
	if len(name) != dnsNameLength || !strings.HasPrefix(name, DNSNamePrefix) {
		return crypto.AccountID{}, fmt.Errorf("%w: malformed DNS name %q", ErrInvalidCertificate, name)
	}
	if name != DNSName(acc) {
		return crypto.AccountID{}, fmt.Errorf("%w: DNS name does not match public key", ErrInvalidCertificate)
	}

	now := v.now()
	if now.Before(c.NotBefore) {
		return crypto.AccountID{}, ErrNotYetValid
	}
	if now.After(c.NotAfter) {
		return crypto.AccountID{}, ErrCertificateExpired
	}
	return acc, nil
}

// PeerAccount validates the first certificate a peer presented.
func (v *Validator) PeerAccount(state tls.ConnectionState) (crypto.AccountID, error) {
	if len(state.PeerCertificates) == 0 {
		return crypto.AccountID{}, fmt.Errorf("%w: peer sent no certificate", ErrInvalidCertificate)
	}
	return v.Validate(state.PeerCertificates[0])
}
