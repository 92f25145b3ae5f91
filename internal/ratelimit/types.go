package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// Scope indicates which dimension a policy groups requests by.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeIP
	ScopeUser
)

// Policy is one independently configured limiter instance.
type Policy struct {
	Name   string
	Scope  Scope
	Limit  int
	Window time.Duration
}

// Enabled reports whether the policy enforces anything.
func (p Policy) Enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// windowStart returns the start of the fixed window containing now.
func windowStart(now time.Time, window time.Duration) int64 {
	size := int64(window / time.Second)
	if size <= 0 {
		size = 1
	}
	return now.Unix() / size * size
}
