package testutils

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/crypto"
)

func RandomHash(t *testing.T) crypto.Hash {
	hash := make([]byte, crypto.HashSize)
	_, err := rand.Read(hash)
	require.NoError(t, err)
	return crypto.Hash(hash)
}

func RandomAccountID(t *testing.T) crypto.AccountID {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	acc, err := crypto.AccountIDFromPublicKey(pub)
	require.NoError(t, err)
	return acc
}

func RandomBytes(t *testing.T, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func MustFromHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	require.NoError(t, err)
	return b
}

// RequireNoDiff compares the indented JSON renderings of expected and actual
// and fails the test with a unified diff if they differ. Similar to
// testify's require.Equal, but far more readable for long event logs.
func RequireNoDiff(t *testing.T, expected, actual any) {
	t.Helper()

	expectedDump, err := json.MarshalIndent(expected, "", "  ")
	require.NoError(t, err)
	actualDump, err := json.MarshalIndent(actual, "", "  ")
	require.NoError(t, err)

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(expectedDump)),
		B:        difflib.SplitLines(string(actualDump)),
		FromFile: "Expected",
		FromDate: "",
		ToFile:   "Actual",
		ToDate:   "",
		Context:  1,
	})
	if diff != "" {
		t.Fatalf("mismatch:\n%s", diff)
	}
}
