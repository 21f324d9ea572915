package relayer

import (
	"crypto/ed25519"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/eigerco/remitchain/internal/remittance"
)

const (
	SigningDomain = "remitchain"
	SigningAction = "send"
)

// SigningPayload is the message a sender signs to authorize a relayer to
// submit on its behalf. Byte fields are hex encoded so no field can contain
// the separator.
func SigningPayload(s remittance.Submit) []byte {
	return []byte(strings.Join([]string{
		SigningDomain,
		strconv.FormatUint(s.ChainID, 10),
		SigningAction,
		s.Sender.String(),
		s.Recipient.String(),
		hexField(s.Amount),
		hexField(s.AssetID),
		hexField(s.Corridor),
		strconv.FormatUint(s.Nonce, 10),
		strconv.FormatUint(uint64(s.Deadline), 10),
	}, ":"))
}

func hexField(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Authorize signs s with the sender's key and stores the signature as the
// forwarded authorization.
func Authorize(s remittance.Submit, key ed25519.PrivateKey) remittance.Submit {
	s.ForwardedAuthorization = ed25519.Sign(key, SigningPayload(s))
	return s
}

// VerifyAuthorization checks the forwarded authorization against the sender
// account, which doubles as its ed25519 public key.
func VerifyAuthorization(s remittance.Submit) bool {
	if len(s.ForwardedAuthorization) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(s.Sender.PublicKey(), SigningPayload(s), s.ForwardedAuthorization)
}
