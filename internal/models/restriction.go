package models

import (
	"net"
	"strings"
)

// RestrictionPolicy is a per-App allowlist of caller addresses. Rules
// are stored as a comma-separated list of IPs and CIDR ranges; an
// empty policy allows every caller. Invalid rules are skipped rather
// than failing the whole policy.
type RestrictionPolicy struct {
	raw      string
	exactIPs map[string]struct{}
	networks []*net.IPNet
}

// ParseRestrictionPolicy builds a policy from its stored representation.
func ParseRestrictionPolicy(raw string) RestrictionPolicy {
	policy := RestrictionPolicy{
		raw:      raw,
		exactIPs: make(map[string]struct{}),
	}

	for _, rule := range strings.Split(raw, ",") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}

		if _, ipNet, err := net.ParseCIDR(rule); err == nil {
			policy.networks = append(policy.networks, ipNet)
			continue
		}

		if ip := net.ParseIP(rule); ip != nil {
			policy.exactIPs[ip.String()] = struct{}{}
		}
	}

	return policy
}

// IsAllowed reports whether the caller address passes the policy.
// An empty policy allows all callers; a non-empty policy allows only
// listed addresses. Unparseable caller addresses are rejected.
func (p RestrictionPolicy) IsAllowed(address string) bool {
	if p.IsEmpty() {
		return true
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}

	if _, ok := p.exactIPs[ip.String()]; ok {
		return true
	}

	for _, ipNet := range p.networks {
		if ipNet.Contains(ip) {
			return true
		}
	}

	return false
}

// IsEmpty reports whether the policy has no rules.
func (p RestrictionPolicy) IsEmpty() bool {
	return len(p.exactIPs) == 0 && len(p.networks) == 0
}

// String returns the stored rule representation.
func (p RestrictionPolicy) String() string {
	return p.raw
}
