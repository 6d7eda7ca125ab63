// Package sealer encrypts fingerprint records for the activation endpoint.
//
// Records are encrypted in a single RSA-OAEP operation: the same hash is used
// for the OAEP digest and for MGF1, there is no chunking and no symmetric
// layer. The plaintext therefore has a hard ceiling of k-2h-2 bytes for a
// k-byte modulus and an h-byte hash. The ciphertext travels as base64 with
// the URL-safe alphabet ('-' and '_' instead of '+' and '/'), padding kept.
package sealer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/magicaleks/magickey/internal/domain"
)

// DefaultHash is used for both the OAEP digest and MGF1.
const DefaultHash = crypto.SHA256

type Option func(*Engine)

// WithHash overrides the OAEP/MGF1 hash.
func WithHash(h crypto.Hash) Option {
	return func(e *Engine) { e.hash = h }
}

// Engine implements impls.PayloadSealer.
type Engine struct {
	key  *rsa.PublicKey
	hash crypto.Hash
}

func New(key *rsa.PublicKey, opts ...Option) *Engine {
	e := &Engine{key: key, hash: DefaultHash}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxPlaintextSize is the largest plaintext a single OAEP operation accepts
// with this key and hash. It is 0 when the key or hash is unusable.
func (e *Engine) MaxPlaintextSize() int {
	if e.key == nil || e.key.N == nil || !e.hash.Available() {
		return 0
	}
	limit := e.key.Size() - 2*e.hash.Size() - 2
	if limit < 0 {
		return 0
	}
	return limit
}

// Encrypt serializes record canonically and seals it.
func (e *Engine) Encrypt(record domain.FingerprintRecord) (domain.EncryptedPayload, error) {
	plaintext, err := record.Canonical()
	if err != nil {
		return "", domain.ErrEncrypt{Op: "serialize", Kind: domain.EncryptCryptoBackend, Err: err}
	}
	return e.Seal(plaintext)
}

// Seal encrypts plaintext and returns it URL-safe encoded. Nothing usable is
// returned on failure.
func (e *Engine) Seal(plaintext []byte) (domain.EncryptedPayload, error) {
	if e.key == nil || e.key.N == nil {
		return "", domain.ErrEncrypt{Op: "seal", Kind: domain.EncryptBadKey, Err: errors.New("no public key")}
	}
	if !e.hash.Available() {
		return "", domain.ErrEncrypt{Op: "seal", Kind: domain.EncryptCryptoBackend, Err: fmt.Errorf("hash %v unavailable", e.hash)}
	}

	limit := e.MaxPlaintextSize()
	if len(plaintext) > limit {
		return "", domain.ErrEncrypt{
			Op:   "seal",
			Kind: domain.EncryptPayloadTooLarge,
			Err:  fmt.Errorf("%d bytes exceeds limit of %d for a %d-bit key", len(plaintext), limit, e.key.N.BitLen()),
		}
	}

	ciphertext, err := rsa.EncryptOAEP(e.hash.New(), rand.Reader, e.key, plaintext, nil)
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return "", domain.ErrEncrypt{Op: "seal", Kind: domain.EncryptPayloadTooLarge, Err: err}
		}
		return "", domain.ErrEncrypt{Op: "seal", Kind: domain.EncryptCryptoBackend, Err: err}
	}

	return domain.EncryptedPayload(base64.URLEncoding.EncodeToString(ciphertext)), nil
}

// Open reverses Seal with the matching private key. Unpadded input is
// accepted as well.
func Open(key *rsa.PrivateKey, payload domain.EncryptedPayload, hash crypto.Hash) ([]byte, error) {
	if key == nil {
		return nil, errors.New("no private key")
	}
	if !hash.Available() {
		return nil, fmt.Errorf("hash %v unavailable", hash)
	}

	ciphertext, err := base64.URLEncoding.DecodeString(string(payload))
	if err != nil {
		ciphertext, err = base64.RawURLEncoding.DecodeString(string(payload))
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	plaintext, err := rsa.DecryptOAEP(hash.New(), nil, key, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt payload: %w", err)
	}
	return plaintext, nil
}
