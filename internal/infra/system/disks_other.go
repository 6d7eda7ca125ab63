//go:build !windows

package system

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
)

func diskSources() (func(context.Context) ([]string, error), func(context.Context, string) (string, error)) {
	return partitionDevices, disk.SerialNumberWithContext
}

func partitionDevices(ctx context.Context) ([]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	devices := make([]string, 0, len(parts))
	for _, part := range parts {
		devices = append(devices, part.Device)
	}
	return devices, nil
}
