//go:build integration

package common

const (
	ChainID            uint64 = 42
	MaxAssetIDLen             = 8
	MaxAmountLen              = 16
	MaxCorridorLen            = 8
	MaxDisputeTypeLen         = 8
	MaxEvidenceHashLen        = 32
	BlockPeriodInSeconds      = 1
)
