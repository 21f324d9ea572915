package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.InfoLevel, Type: JSONLogger, Output: &buf})

	Ledger.Info().Uint64("nonce", 1).Msg("remittance submitted")
	Ledger.Debug().Msg("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "remittance submitted", entry["message"])
	assert.EqualValues(t, 1, entry["nonce"])
}

func TestInitConsole(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: ConsoleLogger, Output: &buf})

	Network.Debug().Msg("stream opened")
	assert.Contains(t, buf.String(), `message: "stream opened" |`)
	assert.Contains(t, buf.String(), `"component": "network" |`)
}

func TestParseLoggerType(t *testing.T) {
	typ, err := ParseLoggerType("json")
	require.NoError(t, err)
	assert.Equal(t, JSONLogger, typ)

	typ, err = ParseLoggerType("")
	require.NoError(t, err)
	assert.Equal(t, ConsoleLogger, typ)

	_, err = ParseLoggerType("xml")
	assert.Error(t, err)
}
