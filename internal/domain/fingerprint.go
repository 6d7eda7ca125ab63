package domain

import (
	"bytes"
	"encoding/json"
)

// FingerprintRecord is the record submitted to the activation endpoint.
// Field order is the serialization order and must not change: the remote
// verifier checks the structure of the decrypted document.
type FingerprintRecord struct {
	IP          string `json:"ip"`
	HWID        string `json:"hwid"`
	HWSerial    string `json:"hwserial"`
	Country     string `json:"country"`
	MachineGUID string `json:"machineguid"`
	DCID        string `json:"dcid"`
	RegDate     string `json:"regdate"`
	Version     string `json:"version"`
}

var fingerprintKeys = []string{
	"ip",
	"hwid",
	"hwserial",
	"country",
	"machineguid",
	"dcid",
	"regdate",
	"version",
}

// FingerprintKeys returns the record keys in serialization order.
func FingerprintKeys() []string {
	keys := make([]string, len(fingerprintKeys))
	copy(keys, fingerprintKeys)
	return keys
}

// Canonical returns the compact JSON form of the record. HTML characters are
// not escaped and there is no trailing newline.
func (r FingerprintRecord) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
