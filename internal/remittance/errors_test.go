package remittance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	sentinels := []error{
		ErrInvalidNonce,
		ErrDeadlineExpired,
		ErrInvalidChainID,
		ErrRemittanceNotFound,
		ErrRemittanceExists,
		ErrValueTooLong,
		ErrBadOrigin,
		ErrInternal,
	}
	for _, sentinel := range sentinels {
		t.Run(sentinel.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("submit: %w", sentinel)
			code := CodeOf(wrapped)
			assert.NotEqual(t, CodeOK, code)
			assert.ErrorIs(t, ErrorFromCode(code), sentinel)
		})
	}

	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.NoError(t, ErrorFromCode(CodeOK))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk on fire")))
	assert.ErrorIs(t, ErrorFromCode(200), ErrInternal)
	assert.Equal(t, "invalid_nonce", CodeInvalidNonce.String())
}
