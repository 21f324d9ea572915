package crypto

import "errors"

const (
	HashSize          = 32
	AccountIDSize     = 32
	Ed25519PublicSize = 32
)

var ErrInvalidLength = errors.New("invalid length")
