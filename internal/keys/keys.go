// Package keys holds the secp256k1 identity used to address this client and
// to sign the offers and packets it sends over a state channel.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrSignatureFailed   = errors.New("failed to sign message")
)

// CompressedPubKeyLen is the length of a compressed secp256k1 public key.
const CompressedPubKeyLen = 33

// Keypair is a secp256k1 private key together with its public key.
type Keypair struct {
	privateKey *btcec.PrivateKey
	publicKey  PublicKey
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return fromPrivateKey(privateKey), nil
}

// FromPrivateKeyHex creates a keypair from a hex-encoded 32-byte private key.
func FromPrivateKeyHex(privKeyHex string) (*Keypair, error) {
	privKeyHex = strings.TrimSpace(privKeyHex)
	if len(privKeyHex) != 64 {
		return nil, ErrInvalidPrivateKey
	}

	privKeyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}

	privateKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	return fromPrivateKey(privateKey), nil
}

func fromPrivateKey(privateKey *btcec.PrivateKey) *Keypair {
	return &Keypair{
		privateKey: privateKey,
		publicKey:  PublicKey(privateKey.PubKey().SerializeCompressed()),
	}
}

// Load reads a keypair from a file holding the hex private key.
func Load(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair: %w", err)
	}
	return FromPrivateKeyHex(string(data))
}

// Save writes the keypair's private key to path, creating parent
// directories as needed.
func (k *Keypair) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create key directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(k.PrivateKeyHex()), 0600)
}

// Sign signs SHA-256(message) and returns a DER encoded signature.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	if k == nil || k.privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	hash := sha256.Sum256(message)
	sig := btcecdsa.Sign(k.privateKey, hash[:])
	if sig == nil {
		return nil, ErrSignatureFailed
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed public key.
func (k *Keypair) PublicKey() PublicKey {
	return k.publicKey
}

// PrivateKeyHex returns the private key as a hex string.
func (k *Keypair) PrivateKeyHex() string {
	return hex.EncodeToString(k.privateKey.Serialize())
}

// PublicKey is a compressed secp256k1 public key.
type PublicKey []byte

// ParsePublicKey validates raw compressed public key bytes.
func ParsePublicKey(data []byte) (PublicKey, error) {
	if len(data) != CompressedPubKeyLen {
		return nil, ErrInvalidPublicKey
	}
	if _, err := btcec.ParsePubKey(data); err != nil {
		return nil, ErrInvalidPublicKey
	}
	out := make(PublicKey, len(data))
	copy(out, data)
	return out, nil
}

// ParsePublicKeyHex decodes and validates a hex public key.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return ParsePublicKey(data)
}

// Verify reports whether sig is a valid signature of message by p.
func (p PublicKey) Verify(message, sig []byte) bool {
	key, err := btcec.ParsePubKey(p)
	if err != nil {
		return false
	}
	signature, err := btcecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(message)
	return signature.Verify(hash[:], key)
}

// Equal returns true if both keys hold the same bytes.
func (p PublicKey) Equal(other PublicKey) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// String returns the hex encoding of the key.
func (p PublicKey) String() string {
	return hex.EncodeToString(p)
}
