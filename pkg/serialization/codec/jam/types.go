package jam

// EncodeEnum is implemented by tagged unions. The index is written as a single
// byte followed by the encoding of the value, if any.
type EncodeEnum interface {
	IndexValue() (index uint, value any, err error)
}

// EnumType is the decoding counterpart of EncodeEnum. ValueAt returns a zero
// value of the variant at index so the decoder knows what to read next.
type EnumType interface {
	EncodeEnum
	ValueAt(index uint) (value any, err error)
	SetValue(value any) error
}

// MaxSequenceLength bounds the length prefix accepted when decoding byte
// strings and slices so a corrupt prefix cannot trigger a huge allocation.
const MaxSequenceLength = 1 << 24
