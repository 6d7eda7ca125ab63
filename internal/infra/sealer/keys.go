package sealer

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/domain"
)

const (
	pemPublicKey     = "PUBLIC KEY"
	pemRSAPublicKey  = "RSA PUBLIC KEY"
	pemPrivateKey    = "PRIVATE KEY"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
)

func badKey(err error) error {
	return domain.ErrEncrypt{Op: "parse key", Kind: domain.EncryptBadKey, Err: err}
}

// ParsePublicKey reads the first PEM block of data. PKIX ("PUBLIC KEY") and
// PKCS#1 ("RSA PUBLIC KEY") encodings are accepted; the key must be RSA.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, badKey(errors.New("no PEM block found"))
	}

	switch block.Type {
	case pemPublicKey:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, badKey(err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, badKey(fmt.Errorf("unsupported key type %T", key))
		}
		return rsaKey, nil
	case pemRSAPublicKey:
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, badKey(err)
		}
		return key, nil
	default:
		return nil, badKey(fmt.Errorf("unsupported PEM block %q", block.Type))
	}
}

// LoadPublicKey resolves the activation key from inline PEM or from the
// configured file.
func LoadPublicKey(cfg *config.Config) (*rsa.PublicKey, error) {
	if cfg.PublicKeyPEM != "" {
		return ParsePublicKey([]byte(cfg.PublicKeyPEM))
	}
	if cfg.PublicKeyFile == "" {
		return nil, badKey(errors.New("no key configured"))
	}
	data, err := os.ReadFile(cfg.PublicKeyFile)
	if err != nil {
		return nil, badKey(err)
	}
	return ParsePublicKey(data)
}

// ParsePrivateKey reads a PKCS#8 or PKCS#1 RSA private key. Every failure
// matches domain.ErrBadKey.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, badKey(errors.New("no PEM block found"))
	}

	switch block.Type {
	case pemPrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, badKey(err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, badKey(fmt.Errorf("unsupported key type %T", key))
		}
		return rsaKey, nil
	case pemRSAPrivateKey:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, badKey(err)
		}
		return key, nil
	default:
		return nil, badKey(fmt.Errorf("unsupported PEM block %q", block.Type))
	}
}

// GenerateKeyPair creates an RSA key pair and returns it PEM encoded
// (PKCS#8 private, PKIX public).
func GenerateKeyPair(bits int) (privPEM, pubPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}

	privPEM = pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: pubDER})
	return privPEM, pubPEM, nil
}

// Key pair file names written by WriteKeyPair.
const (
	PrivateKeyFile = "private.pem"
	PublicKeyFile  = "public.pem"
)

// WriteKeyPair generates a key pair and stores it in dir. The private key is
// readable by the owner only. Existing files are not overwritten.
func WriteKeyPair(dir string, bits int) (privPath, pubPath string, err error) {
	privPEM, pubPEM, err := GenerateKeyPair(bits)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create key dir %s: %w", dir, err)
	}

	privPath = filepath.Join(dir, PrivateKeyFile)
	pubPath = filepath.Join(dir, PublicKeyFile)
	if err := writeNew(privPath, privPEM, 0o600); err != nil {
		return "", "", err
	}
	if err := writeNew(pubPath, pubPEM, 0o644); err != nil {
		return "", "", err
	}
	return privPath, pubPath, nil
}

// LoadPrivateKey reads a PEM private key file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, badKey(fmt.Errorf("read private key %s: %w", path, err))
	}
	return ParsePrivateKey(data)
}

func writeNew(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
