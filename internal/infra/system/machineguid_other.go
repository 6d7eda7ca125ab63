//go:build !windows

package system

import (
	"errors"
	"os"
	"strings"
)

var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

func readMachineGUID() (string, error) {
	for _, path := range machineIDPaths {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("machine id not found")
}
