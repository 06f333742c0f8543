package utils

import (
	"net"
	"net/url"
	"strings"
)

var privateRanges = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"), // link-local IPv4
	mustParseCIDR("::1/128"),        // loopback IPv6
	mustParseCIDR("fe80::/10"),      // link-local IPv6
	mustParseCIDR("fc00::/7"),       // unique local IPv6
}

// IsAllowedOrigin checks whether an Origin header value points at the local
// network: localhost, private or link-local IPs, .local hostnames and
// single-label hostnames. Public internet origins are rejected.
func IsAllowedOrigin(origin string) bool {
	parsed, ok := parseOrigin(origin)
	if !ok {
		return false
	}
	hostname := parsed.Hostname()

	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	case !strings.Contains(hostname, ".") && !strings.Contains(hostname, ":"):
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

// OriginPolicy allows local-network origins plus a fixed list of public
// origins (for example the deployed homepage).
type OriginPolicy struct {
	extra map[string]struct{}
}

func NewOriginPolicy(extraOrigins []string) *OriginPolicy {
	p := &OriginPolicy{extra: make(map[string]struct{}, len(extraOrigins))}
	for _, origin := range extraOrigins {
		if key, ok := originKey(origin); ok {
			p.extra[key] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether origin may call the API.
func (p *OriginPolicy) Allowed(origin string) bool {
	if IsAllowedOrigin(origin) {
		return true
	}
	if p == nil {
		return false
	}
	key, ok := originKey(origin)
	if !ok {
		return false
	}
	_, found := p.extra[key]
	return found
}

func parseOrigin(origin string) (*url.URL, bool) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil, false
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}

// originKey normalizes an origin to lowercase scheme://host[:port].
func originKey(origin string) (string, bool) {
	parsed, ok := parseOrigin(origin)
	if !ok {
		return "", false
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host), true
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}
