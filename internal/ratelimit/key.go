package ratelimit

import "strings"

// KeyFor builds a limiter key for the policy and scope value.
// Each policy gets its own key space so the same address or user
// is counted independently per policy.
func KeyFor(policy Policy, scopeValue string) string {
	scopeValue = strings.TrimSpace(scopeValue)
	if scopeValue == "" || policy.Name == "" {
		return ""
	}
	switch policy.Scope {
	case ScopeIP:
		return policy.Name + ":ip:" + scopeValue
	case ScopeUser:
		return policy.Name + ":u:" + scopeValue
	default:
		return ""
	}
}
