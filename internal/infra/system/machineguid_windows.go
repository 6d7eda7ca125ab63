//go:build windows

package system

import "golang.org/x/sys/windows/registry"

const (
	cryptographyKey  = `SOFTWARE\Microsoft\Cryptography`
	machineGUIDValue = "MachineGuid"
)

func readMachineGUID() (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, cryptographyKey, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "", err
	}
	defer key.Close()

	guid, _, err := key.GetStringValue(machineGUIDValue)
	return guid, err
}
