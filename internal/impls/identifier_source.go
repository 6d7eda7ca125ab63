package impls

import (
	"context"

	"github.com/magicaleks/magickey/internal/domain"
)

// IdentifierSource supplies raw device identifiers. Accessors never fail:
// an unavailable identifier is returned as "" or nil.
type IdentifierSource interface {
	SystemUUID(ctx context.Context) string
	MachineGUID(ctx context.Context) string
	DiskSerials(ctx context.Context) []string
	NetworkIdentity(ctx context.Context) (*domain.IPRecord, *domain.ProxyRecord)
}

// NetworkLookup resolves the public address and its proxy/risk record.
type NetworkLookup interface {
	Lookup(ctx context.Context) (*domain.IPRecord, *domain.ProxyRecord)
}
