package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/router-for-me/StudyGateway/internal/config"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	window := 10 * time.Minute
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "k", 3, window, now.Add(time.Duration(i)*time.Second))
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: expected allowed, got %+v (%v)", i+1, res, err)
		}
		if res.Remaining != 2-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i+1, 2-i, res.Remaining)
		}
	}
	res, err := limiter.Allow(ctx, "k", 3, window, now.Add(5*time.Second))
	if err != nil || res.Allowed {
		t.Fatalf("expected 4th request denied, got %+v (%v)", res, err)
	}
	if want := now.Add(window); !res.Reset.Equal(want) {
		t.Fatalf("expected reset %s, got %s", want, res.Reset)
	}

	other, _ := limiter.Allow(ctx, "other", 3, window, now)
	if !other.Allowed {
		t.Fatalf("expected independent key to be allowed")
	}

	next, _ := limiter.Allow(ctx, "k", 3, window, now.Add(window))
	if !next.Allowed {
		t.Fatalf("expected new window to reset the counter")
	}
}

func TestMemoryLimiterSweepsExpiredWindows(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, key := range []string{"a", "b", "c"} {
		if _, err := limiter.Allow(ctx, key, 1, time.Minute, now); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if limiter.size() != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", limiter.size())
	}
	if _, err := limiter.Allow(ctx, "d", 1, time.Minute, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if limiter.size() != 1 {
		t.Fatalf("expected expired keys swept, got %d", limiter.size())
	}
}

func TestManagerCheckPolicies(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := NewManager(nil, func() time.Time { return now }, nil)
	policies := ResolvePolicies(config.Default().RateLimit)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := manager.Check(ctx, policies.Login, "10.0.0.1")
		if err != nil || !res.Allowed {
			t.Fatalf("login %d: expected allowed, got %+v (%v)", i+1, res, err)
		}
	}
	if res, _ := manager.Check(ctx, policies.Login, "10.0.0.1"); res.Allowed {
		t.Fatalf("expected 6th login denied")
	}
	if res, _ := manager.Check(ctx, policies.Signup, "10.0.0.1"); !res.Allowed {
		t.Fatalf("expected signup policy to count independently of login")
	}
	if res, _ := manager.Check(ctx, policies.IP, "10.0.0.1"); !res.Allowed {
		t.Fatalf("expected ip policy to count independently of login")
	}

	disabled := Policy{Name: "off", Scope: ScopeIP, Limit: 0, Window: time.Minute}
	for i := 0; i < 10; i++ {
		if res, _ := manager.Check(ctx, disabled, "10.0.0.1"); !res.Allowed {
			t.Fatalf("expected disabled policy to allow")
		}
	}
}

func TestManagerFallsBackToMemoryWhenRedisDown(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	settings := SettingsFromConfig(config.RateLimitConfig{
		RedisEnabled: true,
		RedisAddr:    "127.0.0.1:1",
		RedisPrefix:  "test",
	})
	manager := NewManager(settings, func() time.Time { return now }, nil)
	defer func() { _ = manager.Close() }()

	policy := Policy{Name: PolicyUser, Scope: ScopeUser, Limit: 1, Window: time.Minute}
	res, err := manager.Check(context.Background(), policy, "7")
	if err != nil || !res.Allowed {
		t.Fatalf("expected memory fallback to allow first request, got %+v (%v)", res, err)
	}
	if !manager.isBreakerActive(now) {
		t.Fatalf("expected breaker to trip after redis failure")
	}
	res, err = manager.Check(context.Background(), policy, "7")
	if err != nil || res.Allowed {
		t.Fatalf("expected memory fallback to deny second request, got %+v (%v)", res, err)
	}
}

func TestKeyFor(t *testing.T) {
	ip := Policy{Name: PolicyIP, Scope: ScopeIP, Limit: 1, Window: time.Minute}
	user := Policy{Name: PolicyUser, Scope: ScopeUser, Limit: 1, Window: time.Minute}
	if got := KeyFor(ip, "1.2.3.4"); got != "ip:ip:1.2.3.4" {
		t.Fatalf("unexpected ip key %q", got)
	}
	if got := KeyFor(user, "42"); got != "user:u:42" {
		t.Fatalf("unexpected user key %q", got)
	}
	if got := KeyFor(user, " "); got != "" {
		t.Fatalf("expected empty key for blank scope, got %q", got)
	}
}

func TestRedisLimiterBuildKey(t *testing.T) {
	l := NewRedisLimiter(nil, "gw:rl")
	if got := l.buildKey("ip:ip:1.2.3.4", 600); got != "gw:rl:ip:ip:1.2.3.4:600" {
		t.Fatalf("unexpected redis key %q", got)
	}
	res, err := l.Allow(context.Background(), "k", 1, time.Minute, time.Now())
	if err != nil || !res.Allowed {
		t.Fatalf("expected nil client to allow, got %+v (%v)", res, err)
	}
}
