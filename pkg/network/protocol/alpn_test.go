package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolIDString(t *testing.T) {
	assert.Equal(t, "remitchain/0/1337", NewProtocolID(1337).String())
	assert.Equal(t, "remitchain/0/0", NewProtocolID(0).String())
}

func TestParseProtocolID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ProtocolID
		wantErr  bool
	}{
		{name: "valid", input: "remitchain/0/1337", expected: ProtocolID{Version: "0", ChainID: 1337}},
		{name: "max chain id", input: "remitchain/0/18446744073709551615", expected: ProtocolID{Version: "0", ChainID: 1<<64 - 1}},
		{name: "wrong prefix", input: "jamnp-s/0/1337", wantErr: true},
		{name: "wrong version", input: "remitchain/1/1337", wantErr: true},
		{name: "missing chain id", input: "remitchain/0", wantErr: true},
		{name: "extra part", input: "remitchain/0/1337/builder", wantErr: true},
		{name: "hex chain id", input: "remitchain/0/0x539", wantErr: true},
		{name: "leading zero", input: "remitchain/0/01337", wantErr: true},
		{name: "negative", input: "remitchain/0/-1", wantErr: true},
		{name: "overflow", input: "remitchain/0/18446744073709551616", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseProtocolID(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}
