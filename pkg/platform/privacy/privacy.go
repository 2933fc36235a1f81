// Package privacy provides helpers for logging identifiers without exposing PII.
package privacy

import (
	"net"
	"strings"
)

// AnonymizeIP truncates an IP address for log output: IPv4 keeps the first
// two octets, IPv6 keeps the first two groups. Invalid input is masked
// entirely rather than logged verbatim.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		octets := strings.Split(v4.String(), ".")
		return octets[0] + "." + octets[1] + ".x.x"
	}
	groups := strings.Split(parsed.String(), ":")
	if len(groups) < 2 {
		return "invalid"
	}
	return groups[0] + ":" + groups[1] + "::x"
}
