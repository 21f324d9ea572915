package remittance

import (
	"fmt"

	"github.com/eigerco/remitchain/internal/common"
)

// Limits are the maximum byte lengths of the bounded fields.
type Limits struct {
	AssetID      int
	Amount       int
	Corridor     int
	DisputeType  int
	EvidenceHash int
}

// DefaultLimits returns the deployment's configured bounds.
func DefaultLimits() Limits {
	return Limits{
		AssetID:      common.MaxAssetIDLen,
		Amount:       common.MaxAmountLen,
		Corridor:     common.MaxCorridorLen,
		DisputeType:  common.MaxDisputeTypeLen,
		EvidenceHash: common.MaxEvidenceHashLen,
	}
}

func checkLen(field string, value []byte, limit int) error {
	if len(value) > limit {
		return fmt.Errorf("%w: %s has %d bytes, limit is %d", ErrValueTooLong, field, len(value), limit)
	}
	return nil
}
