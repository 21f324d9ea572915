package jam

import (
	"errors"
)

var (
	// errFirstByteNineByteSerialization is returned when the first byte has wrong value in 9-byte serialization
	errFirstByteNineByteSerialization = errors.New("expected first byte to be 255 for 9-byte serialization")
	ErrInvalidPointer                 = errors.New("invalid pointer")
	ErrInvalidPointerMarker           = errors.New("invalid pointer marker")
	ErrDecodingBool                   = errors.New("error decoding boolean")
	ErrExceedingLengthLimit           = errors.New("sequence length exceeds decoding limit")
	ErrTrailingBytes                  = errors.New("trailing bytes after decoded value")

	ErrUnsupportedType     = "unsupported type: %v"
	ErrReadingBytes        = "error reading bytes: %w"
	ErrReadingByte         = "error reading byte: %w"
	ErrDecodingUint        = "error decoding uint: %w"
	ErrEncodingStructField = "encoding struct field '%s': %w"
	ErrDecodingStructField = "decoding struct field '%s': %w"
	ErrUnknownEnumIndex    = "unknown enum index %d"
)
