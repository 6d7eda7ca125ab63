package system

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/magicaleks/magickey/internal/domain"
	"github.com/magicaleks/magickey/internal/impls"
)

// Probe implements impls.IdentifierSource on top of gopsutil and the
// platform machine id.
type Probe struct {
	network impls.NetworkLookup
	logger  *slog.Logger

	hostID      func(ctx context.Context) (string, error)
	partitions  func(ctx context.Context) ([]string, error)
	serial      func(ctx context.Context, device string) (string, error)
	machineGUID func() (string, error)
}

func NewProbe(network impls.NetworkLookup, logger *slog.Logger) *Probe {
	p := &Probe{
		network:     network,
		logger:      logger,
		hostID:      host.HostIDWithContext,
		machineGUID: readMachineGUID,
	}
	p.partitions, p.serial = diskSources()
	return p
}

func (p *Probe) SystemUUID(ctx context.Context) string {
	id, err := p.hostID(ctx)
	if err != nil {
		p.logger.Debug("system uuid unavailable", "err", err)
		return ""
	}
	return strings.TrimSpace(id)
}

func (p *Probe) MachineGUID(_ context.Context) string {
	guid, err := p.machineGUID()
	if err != nil {
		p.logger.Debug("machine guid unavailable", "err", err)
		return ""
	}
	return strings.TrimSpace(guid)
}

// DiskSerials returns the serial numbers of mounted disks in discovery
// order. Duplicates (several partitions on one disk), empty values and the
// placeholder "None" are skipped.
func (p *Probe) DiskSerials(ctx context.Context) []string {
	devices, err := p.partitions(ctx)
	if err != nil {
		p.logger.Debug("disk enumeration failed", "err", err)
		return nil
	}

	var serials []string
	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		serial, err := p.serial(ctx, dev)
		if err != nil {
			continue
		}
		serial = strings.TrimSpace(serial)
		if serial == "" || serial == "None" {
			continue
		}
		if _, dup := seen[serial]; dup {
			continue
		}
		seen[serial] = struct{}{}
		serials = append(serials, serial)
	}
	return serials
}

func (p *Probe) NetworkIdentity(ctx context.Context) (*domain.IPRecord, *domain.ProxyRecord) {
	if p.network == nil {
		return nil, nil
	}
	return p.network.Lookup(ctx)
}
