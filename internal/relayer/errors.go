package relayer

import "errors"

var (
	ErrStaleNonce          = errors.New("nonce not above the last forwarded nonce")
	ErrBadAuthorization    = errors.New("forwarded authorization does not verify")
	ErrNonceExhausted      = errors.New("sender has used the largest nonce")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different payload")
	ErrReceiptNotFound     = errors.New("no receipt for idempotency key")
)
