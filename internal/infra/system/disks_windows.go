//go:build windows

package system

import (
	"context"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type win32DiskDrive struct {
	DeviceID     string
	SerialNumber string
}

// diskSources reads physical drives from WMI; partitions carry no serial
// number on Windows.
func diskSources() (func(context.Context) ([]string, error), func(context.Context, string) (string, error)) {
	serials := make(map[string]string)

	list := func(context.Context) ([]string, error) {
		var drives []win32DiskDrive
		if err := wmi.Query("SELECT DeviceID, SerialNumber FROM Win32_DiskDrive", &drives); err != nil {
			return nil, fmt.Errorf("query Win32_DiskDrive: %w", err)
		}
		ids := make([]string, 0, len(drives))
		for _, d := range drives {
			serials[d.DeviceID] = d.SerialNumber
			ids = append(ids, d.DeviceID)
		}
		return ids, nil
	}

	serial := func(_ context.Context, id string) (string, error) {
		s, ok := serials[id]
		if !ok {
			return "", fmt.Errorf("unknown drive %s", id)
		}
		return s, nil
	}

	return list, serial
}
