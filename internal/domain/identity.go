package domain

// IdentifierBundle holds the raw device identifiers collected at startup.
// Empty strings, nil slices and nil records mean the identifier was not
// available; none of them is an error.
type IdentifierBundle struct {
	SystemUUID  string
	MachineGUID string
	// DiskSerials keeps discovery order. The first entry is the primary disk.
	DiskSerials []string
	IP          *IPRecord
	Proxy       *ProxyRecord
}

// PrimaryDiskSerial returns the first discovered disk serial or "".
func (b IdentifierBundle) PrimaryDiskSerial() string {
	if len(b.DiskSerials) == 0 {
		return ""
	}
	return b.DiskSerials[0]
}

// IPRecord is the reply of the IP check service.
type IPRecord struct {
	IP           string `json:"IP"`
	CheckTimeUTC string `json:"CheckTimeUTC"`
}

// ProxyRecord is the per-address entry returned by the proxy/risk service.
type ProxyRecord struct {
	Country      string `json:"country"`
	Provider     string `json:"provider"`
	Organisation string `json:"organisation"`
	ASN          string `json:"asn,omitempty"`
	Proxy        string `json:"proxy,omitempty"`
	Type         string `json:"type,omitempty"`
}

// StaticFields are the fingerprint fields that come from configuration.
type StaticFields struct {
	DCID    string
	Version string
}
