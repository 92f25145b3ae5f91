package ratelimit

import "github.com/router-for-me/StudyGateway/internal/config"

// Policy names used as key prefixes.
const (
	PolicyIP     = "ip"
	PolicyUser   = "user"
	PolicySignup = "signup"
	PolicyLogin  = "login"
)

// Policies groups the limiter instances the request pipeline applies.
type Policies struct {
	IP     Policy // Every endpoint, before authentication.
	User   Policy // Authenticated endpoints, after authentication.
	Signup Policy // Signup only, per source address.
	Login  Policy // Login only, per source address.
}

// ResolvePolicies builds the policies from config.
func ResolvePolicies(cfg config.RateLimitConfig) Policies {
	return Policies{
		IP:     Policy{Name: PolicyIP, Scope: ScopeIP, Limit: cfg.IP.Limit, Window: cfg.IP.Window},
		User:   Policy{Name: PolicyUser, Scope: ScopeUser, Limit: cfg.User.Limit, Window: cfg.User.Window},
		Signup: Policy{Name: PolicySignup, Scope: ScopeIP, Limit: cfg.Signup.Limit, Window: cfg.Signup.Window},
		Login:  Policy{Name: PolicyLogin, Scope: ScopeIP, Limit: cfg.Login.Limit, Window: cfg.Login.Window},
	}
}
