package sealer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicaleks/magickey/internal/domain"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
	keyErr  error
)

func privateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		testKey, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, keyErr)
	return testKey
}

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_\-]+=*$`)

func sampleRecord() domain.FingerprintRecord {
	return domain.FingerprintRecord{
		IP:          "1.2.3.4",
		HWID:        "ABC-1",
		HWSerial:    "SN001",
		Country:     "US////",
		MachineGUID: "",
		DCID:        "dc-7",
		RegDate:     "2024-01-01",
		Version:     "1.4.2",
	}
}

func TestEncryptRoundTrip(t *testing.T) {
	priv := privateKey(t)
	engine := New(&priv.PublicKey)
	record := sampleRecord()

	payload, err := engine.Encrypt(record)
	require.NoError(t, err)

	assert.NotContains(t, string(payload), "+")
	assert.NotContains(t, string(payload), "/")
	assert.Regexp(t, urlSafe, string(payload))

	plaintext, err := Open(priv, payload, DefaultHash)
	require.NoError(t, err)

	want, err := record.Canonical()
	require.NoError(t, err)
	assert.Equal(t, want, plaintext)
}

func TestEncryptIsRandomized(t *testing.T) {
	priv := privateKey(t)
	engine := New(&priv.PublicKey)

	a, err := engine.Encrypt(sampleRecord())
	require.NoError(t, err)
	b, err := engine.Encrypt(sampleRecord())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenAcceptsUnpaddedPayload(t *testing.T) {
	priv := privateKey(t)
	payload, err := New(&priv.PublicKey).Seal([]byte("hello"))
	require.NoError(t, err)

	plaintext, err := Open(priv, domain.EncryptedPayload(strings.TrimRight(string(payload), "=")), DefaultHash)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
}

func TestMaxPlaintextSize(t *testing.T) {
	priv := privateKey(t)

	assert.Equal(t, 256-2*32-2, New(&priv.PublicKey).MaxPlaintextSize())
	assert.Equal(t, 256-2*20-2, New(&priv.PublicKey, WithHash(crypto.SHA1)).MaxPlaintextSize())
	assert.Zero(t, New(nil).MaxPlaintextSize())
}

func TestSealBoundary(t *testing.T) {
	priv := privateKey(t)
	engine := New(&priv.PublicKey)
	limit := engine.MaxPlaintextSize()

	atLimit := []byte(strings.Repeat("a", limit))
	payload, err := engine.Seal(atLimit)
	require.NoError(t, err)
	plaintext, err := Open(priv, payload, DefaultHash)
	require.NoError(t, err)
	assert.Equal(t, atLimit, plaintext)

	payload, err = engine.Seal([]byte(strings.Repeat("a", limit+1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPayloadTooLarge))
	assert.Empty(t, payload)
}

func TestEncryptRecordBoundary(t *testing.T) {
	priv := privateKey(t)
	engine := New(&priv.PublicKey)
	limit := engine.MaxPlaintextSize()

	record := sampleRecord()
	base, err := record.Canonical()
	require.NoError(t, err)
	require.Less(t, len(base), limit)

	record.Version += strings.Repeat("x", limit-len(base))
	exact, err := record.Canonical()
	require.NoError(t, err)
	require.Len(t, exact, limit)

	_, err = engine.Encrypt(record)
	require.NoError(t, err)

	record.Version += "x"
	payload, err := engine.Encrypt(record)
	require.ErrorIs(t, err, domain.ErrPayloadTooLarge)
	assert.Empty(t, payload)

	var encErr domain.ErrEncrypt
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, domain.EncryptPayloadTooLarge, encErr.Kind)
}

func TestSealHashUnavailable(t *testing.T) {
	priv := privateKey(t)
	engine := New(&priv.PublicKey, WithHash(crypto.Hash(0)))

	payload, err := engine.Seal([]byte("x"))
	require.ErrorIs(t, err, domain.ErrCryptoBackend)
	assert.False(t, errors.Is(err, domain.ErrBadKey))
	assert.Empty(t, payload)
}

func TestSealWithoutKey(t *testing.T) {
	payload, err := New(nil).Seal([]byte("x"))
	require.ErrorIs(t, err, domain.ErrBadKey)
	assert.Empty(t, payload)
}

func TestOpenRejectsForeignKey(t *testing.T) {
	priv := privateKey(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payload, err := New(&priv.PublicKey).Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = Open(other, payload, DefaultHash)
	require.Error(t, err)

	_, err = Open(priv, "!!not base64!!", DefaultHash)
	require.Error(t, err)
}

func TestParsePublicKey(t *testing.T) {
	priv := privateKey(t)

	pkixDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pkix := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkixDER})
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey)})

	for name, data := range map[string][]byte{"pkix": pkix, "pkcs1": pkcs1} {
		t.Run(name, func(t *testing.T) {
			key, err := ParsePublicKey(data)
			require.NoError(t, err)
			assert.True(t, priv.PublicKey.Equal(key))
		})
	}
}

func TestParsePublicKeyRejectsBadMaterial(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not pem", data: []byte("ssh-rsa AAAAB3NzaC1yc2E")},
		{name: "corrupt body", data: pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{0x30, 0x01}})},
		{name: "wrong block", data: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParsePublicKey(tt.data)
			require.ErrorIs(t, err, domain.ErrBadKey)
			assert.Nil(t, key)
		})
	}
}
