package fingerprint

import "github.com/magicaleks/magickey/internal/domain"

// CountrySeparator joins the country, provider and organisation parts.
const CountrySeparator = "//"

// Assemble builds the fingerprint record from the collected identifiers and
// the static fields. Missing identifiers become empty strings; only the
// primary disk serial is used.
func Assemble(bundle domain.IdentifierBundle, static domain.StaticFields) domain.FingerprintRecord {
	var ip, regDate string
	if bundle.IP != nil {
		ip = bundle.IP.IP
		regDate = bundle.IP.CheckTimeUTC
	}

	return domain.FingerprintRecord{
		IP:          ip,
		HWID:        bundle.SystemUUID,
		HWSerial:    bundle.PrimaryDiskSerial(),
		Country:     Country(bundle.Proxy),
		MachineGUID: bundle.MachineGUID,
		DCID:        static.DCID,
		RegDate:     regDate,
		Version:     static.Version,
	}
}

// Country composes country//provider//organisation. Every part is kept,
// empty or not, so the value always has two separators.
func Country(proxy *domain.ProxyRecord) string {
	var country, provider, organisation string
	if proxy != nil {
		country = proxy.Country
		provider = proxy.Provider
		organisation = proxy.Organisation
	}
	return country + CountrySeparator + provider + CountrySeparator + organisation
}
