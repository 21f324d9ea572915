package store

import (
	"encoding/binary"
	"errors"
)

var ErrCorruptEntry = errors.New("corrupt store entry")

// Prefix constants for all store types
const (
	prefixNonce byte = iota + 1
	prefixRemittance
	prefixJournalEntry
	prefixJournalHead
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixNonce:
		return "nonce"
	case prefixRemittance:
		return "remittance"
	case prefixJournalEntry:
		return "journalEntry"
	case prefixJournalHead:
		return "journalHead"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and hash
func makeKey(prefix byte, hash []byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = prefix
	copy(key[1:], hash)
	return key
}

// makeSeqKey encodes seq big-endian so keys sort in sequence order.
func makeSeqKey(prefix byte, seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

func encodeUint64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, ErrCorruptEntry
	}
	return binary.LittleEndian.Uint64(b), nil
}
