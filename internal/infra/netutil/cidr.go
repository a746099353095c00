package netutil

import (
	"net"
)

// ParseCIDRs parses CIDR strings into []*net.IPNet; invalid entries are
// skipped so a bad allowlist entry cannot take the admin surface down.
func ParseCIDRs(cidrs []string) (out []*net.IPNet) {
	for _, s := range cidrs {
		_, n, err := net.ParseCIDR(s)
		if err == nil && n != nil {
			out = append(out, n)
		}
	}
	return
}
