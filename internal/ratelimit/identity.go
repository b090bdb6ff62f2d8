package ratelimit

import (
	"fmt"
	"strings"
)

// AnonymousIdentifier is the shared bucket for callers with nothing to key on.
const AnonymousIdentifier = "anonymous"

// Bucket identifiers carry a kind prefix so a magic code can never land in
// an address bucket or the anonymous one.
const (
	codePrefix = "code:"
	ipPrefix   = "ip:"
)

// Policy selects what a rate-limit bucket is keyed on.
//
// magic_code keeps no network data but lets every code-less caller share one
// quota per endpoint. ip resists that abuse at the cost of keying on client
// addresses. hybrid prefers the magic code and falls back to the address.
type Policy string

const (
	PolicyMagicCode Policy = "magic_code"
	PolicyIP        Policy = "ip"
	PolicyHybrid    Policy = "hybrid"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyMagicCode, PolicyIP, PolicyHybrid:
		return p, nil
	case "":
		return PolicyMagicCode, nil
	default:
		return "", fmt.Errorf("unknown rate limit identity policy %q", s)
	}
}

// Identify picks the bucket identifier for a request.
func (p Policy) Identify(magicCode, clientIP string) string {
	magicCode = strings.TrimSpace(magicCode)
	clientIP = strings.TrimSpace(clientIP)

	switch p {
	case PolicyIP:
		if clientIP != "" {
			return ipPrefix + clientIP
		}
	case PolicyHybrid:
		if magicCode != "" {
			return codePrefix + magicCode
		}
		if clientIP != "" {
			return ipPrefix + clientIP
		}
	default:
		if magicCode != "" {
			return codePrefix + magicCode
		}
	}
	return AnonymousIdentifier
}
