package hmacauth

import (
	"fmt"
	"net"
	"strings"
)

// DefaultTrustedProxies is used when ValidatorConfig.TrustedProxies is
// empty: loopback, RFC 1918, CGNAT and IPv6 unique local ranges.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"::1/128",
	"fc00::/7",
}

// proxySet holds parsed proxy addresses and ranges.
type proxySet struct {
	ips  []net.IP
	nets []*net.IPNet
}

// parseTrustedProxies accepts bare IPs and CIDR ranges. Any other entry
// fails with ErrInvalidProxy.
func parseTrustedProxies(entries []string) (*proxySet, error) {
	ps := &proxySet{}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)

		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
			}

			ps.nets = append(ps.nets, ipNet)

			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
		}

		ps.ips = append(ps.ips, ip)
	}

	return ps, nil
}

// contains reports whether remoteAddr, with or without a port, is in the
// set.
func (ps *proxySet) contains(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, trusted := range ps.ips {
		if trusted.Equal(ip) {
			return true
		}
	}

	for _, ipNet := range ps.nets {
		if ipNet.Contains(ip) {
			return true
		}
	}

	return false
}

// ValidateTrustedProxies checks entries the same way NewValidator does.
func ValidateTrustedProxies(entries []string) error {
	_, err := parseTrustedProxies(entries)
	return err
}
