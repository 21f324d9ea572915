package remittance

import (
	"errors"
	"fmt"
)

// Domain rejections. Each is a deterministic function of the command and the
// current state, so retrying the same command reproduces the same error.
var (
	ErrInvalidNonce       = errors.New("invalid nonce")
	ErrDeadlineExpired    = errors.New("deadline expired")
	ErrInvalidChainID     = errors.New("invalid chain id")
	ErrRemittanceNotFound = errors.New("remittance not found")
	ErrRemittanceExists   = errors.New("remittance already exists")
	ErrValueTooLong       = errors.New("value too long")
	ErrBadOrigin          = errors.New("bad origin")

	// ErrInternal stands in for host faults (storage, encoding) on the wire.
	ErrInternal = errors.New("internal error")
)

// ErrorCode is the stable one-byte representation of a command outcome.
type ErrorCode uint8

const (
	CodeOK ErrorCode = iota
	CodeInvalidNonce
	CodeDeadlineExpired
	CodeInvalidChainID
	CodeRemittanceNotFound
	CodeRemittanceExists
	CodeValueTooLong
	CodeBadOrigin
	CodeInternal
)

// codeErrors is indexed by ErrorCode
var codeErrors = []error{
	CodeOK:                 nil,
	CodeInvalidNonce:       ErrInvalidNonce,
	CodeDeadlineExpired:    ErrDeadlineExpired,
	CodeInvalidChainID:     ErrInvalidChainID,
	CodeRemittanceNotFound: ErrRemittanceNotFound,
	CodeRemittanceExists:   ErrRemittanceExists,
	CodeValueTooLong:       ErrValueTooLong,
	CodeBadOrigin:          ErrBadOrigin,
	CodeInternal:           ErrInternal,
}

// CodeOf maps err to its ErrorCode. Errors that are not domain rejections map
// to CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	for code, sentinel := range codeErrors {
		if sentinel != nil && errors.Is(err, sentinel) {
			return ErrorCode(code)
		}
	}
	return CodeInternal
}

// ErrorFromCode returns the sentinel for code, nil for CodeOK.
func ErrorFromCode(code ErrorCode) error {
	if int(code) < len(codeErrors) {
		return codeErrors[code]
	}
	return fmt.Errorf("%w: unknown error code %d", ErrInternal, code)
}

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidNonce:
		return "invalid_nonce"
	case CodeDeadlineExpired:
		return "deadline_expired"
	case CodeInvalidChainID:
		return "invalid_chain_id"
	case CodeRemittanceNotFound:
		return "remittance_not_found"
	case CodeRemittanceExists:
		return "remittance_exists"
	case CodeValueTooLong:
		return "value_too_long"
	case CodeBadOrigin:
		return "bad_origin"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}
