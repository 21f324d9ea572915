//go:build !integration

package common

const (
	// ChainID binds remittances to this deployment. Submissions carrying any
	// other chain identifier are rejected.
	ChainID uint64 = 1337

	MaxAssetIDLen      = 32
	MaxAmountLen       = 32
	MaxCorridorLen     = 32
	MaxDisputeTypeLen  = 32
	MaxEvidenceHashLen = 64

	// BlockPeriodInSeconds is the target interval between logical clock ticks.
	BlockPeriodInSeconds = 6
)
