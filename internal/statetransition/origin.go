package statetransition

import "github.com/eigerco/remitchain/internal/crypto"

// Origin is the authenticated caller of a command. Any signed origin is
// accepted as a relayer.
type Origin struct {
	signer crypto.AccountID
	signed bool
}

func Signed(signer crypto.AccountID) Origin {
	return Origin{signer: signer, signed: true}
}

// None is an origin without an authenticated caller.
func None() Origin {
	return Origin{}
}

func (o Origin) Signer() (crypto.AccountID, bool) {
	return o.signer, o.signed
}
