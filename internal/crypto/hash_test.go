package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashData(t *testing.T) {
	a := HashData([]byte("remittance"))
	b := HashData([]byte("remittance"))
	c := HashData([]byte("remittancf"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// blake2b-256 of the empty string
	assert.Equal(t, "0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", HashData(nil).String())
}

func TestHashTextRoundTrip(t *testing.T) {
	h := HashData([]byte{1, 2, 3})
	text, err := h.MarshalText()
	require.NoError(t, err)

	var parsed Hash
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, h, parsed)

	_, err = ParseHash("0x1234")
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = ParseHash("zz")
	assert.Error(t, err)
}

func TestAccountIDFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	acc, err := AccountIDFromPublicKey(pub)
	require.NoError(t, err)
	assert.Equal(t, pub, acc.PublicKey())

	parsed, err := ParseAccountID(acc.String())
	require.NoError(t, err)
	assert.Equal(t, acc, parsed)

	_, err = AccountIDFromPublicKey(pub[:16])
	assert.ErrorIs(t, err, ErrInvalidLength)
}
