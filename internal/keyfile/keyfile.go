package keyfile

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/eigerco/remitchain/internal/crypto"
)

var ErrKeyMismatch = errors.New("public key does not match private key")

// File is the on-disk form of an ed25519 identity, shared by nodes and
// relayers.
type File struct {
	Account    crypto.AccountID `json:"account"`
	PublicKey  string           `json:"ed25519_public_key"`
	PrivateKey string           `json:"ed25519_private_key"`
}

// Generate creates a fresh key and writes it to path. Existing files are
// never overwritten.
func Generate(path string) (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := Write(path, priv); err != nil {
		return nil, err
	}
	return priv, nil
}

func Write(path string, key ed25519.PrivateKey) error {
	pub := key.Public().(ed25519.PublicKey)
	acc, err := crypto.AccountIDFromPublicKey(pub)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(File{
		Account:    acc,
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(key),
	}, "", "\t")
	if err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("write key file: %w", err)
	}
	return f.Close()
}

// Read loads the private key stored at path and checks it against the
// stored public key.
func Read(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}

	priv, err := hex.DecodeString(f.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key has %d bytes", crypto.ErrInvalidLength, len(priv))
	}
	pub, err := hex.DecodeString(f.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	key := ed25519.PrivateKey(priv)
	if !bytes.Equal(key.Public().(ed25519.PublicKey), pub) {
		return nil, ErrKeyMismatch
	}
	return key, nil
}
