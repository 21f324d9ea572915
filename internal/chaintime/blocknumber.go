package chaintime

import (
	"math"
	"math/bits"
)

// BlockNumber is the logical clock of the ledger. It is advanced by the host
// once per block and never decreases.
type BlockNumber uint64

// Add returns b+n, saturating at the maximum representable block.
func (b BlockNumber) Add(n uint64) BlockNumber {
	v, carry := bits.Add64(uint64(b), n, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return BlockNumber(v)
}

// Sub returns b-n, saturating at zero.
func (b BlockNumber) Sub(n uint64) BlockNumber {
	v, borrow := bits.Sub64(uint64(b), n, 0)
	if borrow != 0 {
		return 0
	}
	return BlockNumber(v)
}

// Next returns the next block number
func (b BlockNumber) Next() BlockNumber {
	return b.Add(1)
}

// Previous returns the previous block number
func (b BlockNumber) Previous() BlockNumber {
	return b.Sub(1)
}

// IsAfter reports whether b is strictly later than other.
func (b BlockNumber) IsAfter(other BlockNumber) bool {
	return b > other
}
