package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBadKey          = errors.New("bad key material")
	ErrCryptoBackend   = errors.New("crypto backend failure")
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrAlreadyAttempted is returned when a second activation is requested
	// in the same process.
	ErrAlreadyAttempted = errors.New("activation already attempted in this process")
)

// EncryptErrorKind classifies encryption failures.
type EncryptErrorKind int

const (
	EncryptBadKey EncryptErrorKind = iota
	EncryptCryptoBackend
	EncryptPayloadTooLarge
)

func (k EncryptErrorKind) sentinel() error {
	switch k {
	case EncryptBadKey:
		return ErrBadKey
	case EncryptPayloadTooLarge:
		return ErrPayloadTooLarge
	default:
		return ErrCryptoBackend
	}
}

type ErrEncrypt struct {
	Op   string
	Kind EncryptErrorKind
	Err  error
}

func (e ErrEncrypt) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("encrypt %s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("encrypt %s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

func (e ErrEncrypt) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind.
func (e ErrEncrypt) Is(target error) bool {
	return target == e.Kind.sentinel()
}

type ErrLookup struct {
	Op  string
	URL string
	Err error
}

func (e ErrLookup) Error() string {
	return fmt.Sprintf("lookup %s [%s]: %v", e.Op, e.URL, e.Err)
}

func (e ErrLookup) Unwrap() error {
	return e.Err
}

// ErrActivation reports an exchange that did not yield a token.
type ErrActivation struct {
	Outcome ActivationOutcome
}

func (e ErrActivation) Error() string {
	return "activation failed: " + e.Outcome.String()
}

func (e ErrActivation) Unwrap() error {
	return e.Outcome.Err
}
