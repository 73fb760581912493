// Package secrets handles platform credentials: a vault for shared secrets
// and secretbox unsealing for per-agent credentials.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/swarmworks/hivemind/internal/domain"
)

const nonceSize = 24

// Sealer seals and unseals agent credentials with a 32-byte master key.
type Sealer struct {
	key [32]byte
}

// NewSealer creates a Sealer from a base64-encoded 32-byte master key.
func NewSealer(masterKeyB64 string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(raw))
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal encrypts a plaintext credential for storage. The nonce is prepended
// to the ciphertext and the whole blob is base64-encoded.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed credential. A blob that cannot be authenticated
// returns domain.ErrDecrypt.
func (s *Sealer) Open(sealed string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding", domain.ErrDecrypt)
	}
	if len(blob) < nonceSize {
		return "", fmt.Errorf("%w: blob too short", domain.ErrDecrypt)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])
	plaintext, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", domain.ErrDecrypt
	}
	return string(plaintext), nil
}
