package impls

import (
	"context"

	"github.com/magicaleks/magickey/internal/domain"
)

// PayloadSealer encrypts a fingerprint record for transport.
type PayloadSealer interface {
	Encrypt(record domain.FingerprintRecord) (domain.EncryptedPayload, error)
}

// Activator performs the activation exchange.
type Activator interface {
	Activate(ctx context.Context, payload domain.EncryptedPayload) domain.ActivationOutcome
}

// Handoff receives the authenticated destination URL.
type Handoff interface {
	Open(ctx context.Context, loginURL string) error
}
