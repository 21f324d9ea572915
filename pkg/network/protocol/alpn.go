package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	protocolPrefix = "remitchain"
	currentVersion = "0"
)

// ProtocolID represents a complete ALPN protocol identifier.
// Format: remitchain/<version>/<chain-id>
type ProtocolID struct {
	Version string
	ChainID uint64
}

func NewProtocolID(chainID uint64) ProtocolID {
	return ProtocolID{Version: currentVersion, ChainID: chainID}
}

func (p ProtocolID) String() string {
	return strings.Join([]string{protocolPrefix, p.Version, strconv.FormatUint(p.ChainID, 10)}, "/")
}

// ParseProtocolID parses an ALPN protocol string into a ProtocolID.
// The chain id must be a canonical decimal number.
func ParseProtocolID(protocol string) (ProtocolID, error) {
	parts := strings.Split(protocol, "/")
	if len(parts) != 3 {
		return ProtocolID{}, fmt.Errorf("invalid protocol format: %s", protocol)
	}
	if parts[0] != protocolPrefix {
		return ProtocolID{}, fmt.Errorf("invalid protocol prefix: %s", parts[0])
	}
	if parts[1] != currentVersion {
		return ProtocolID{}, fmt.Errorf("unsupported protocol version: %s", parts[1])
	}

	chainID, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ProtocolID{}, fmt.Errorf("invalid chain id %q: %w", parts[2], err)
	}
	if strconv.FormatUint(chainID, 10) != parts[2] {
		return ProtocolID{}, fmt.Errorf("non-canonical chain id: %s", parts[2])
	}

	return ProtocolID{Version: parts[1], ChainID: chainID}, nil
}
