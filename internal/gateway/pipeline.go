// Package gateway runs the request gates in order and classifies failures.
package gateway

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/router-for-me/StudyGateway/internal/auth"
	"github.com/router-for-me/StudyGateway/internal/quota"
	"github.com/router-for-me/StudyGateway/internal/ratelimit"
	"github.com/router-for-me/StudyGateway/internal/security"
	"github.com/router-for-me/StudyGateway/internal/users"
	log "github.com/sirupsen/logrus"
)

// Authenticator issues and verifies session tokens.
type Authenticator interface {
	Signup(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	VerifyToken(token string) (auth.Identity, error)
}

// RateChecker applies a rate limit policy to a scope value.
type RateChecker interface {
	Check(ctx context.Context, policy ratelimit.Policy, scopeValue string) (ratelimit.Result, error)
}

// Accountant meters daily usage.
type Accountant interface {
	CheckAndRecord(ctx context.Context, userID uint64) (quota.Decision, error)
	Peek(ctx context.Context, userID uint64) (quota.Usage, error)
	Refund(ctx context.Context, userID uint64, day string) error
}

// Generator produces the answer text for a question.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Options groups the pipeline dependencies.
type Options struct {
	Auth      Authenticator
	Limiter   RateChecker
	Policies  ratelimit.Policies
	Quota     Accountant
	Generator Generator

	// RefundOnProviderError returns the quota unit when the provider call fails.
	RefundOnProviderError bool
}

// Pipeline runs the gates for each endpoint.
type Pipeline struct {
	auth      Authenticator
	limiter   RateChecker
	policies  ratelimit.Policies
	quota     Accountant
	generator Generator
	refund    bool
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		auth:      opts.Auth,
		limiter:   opts.Limiter,
		policies:  opts.Policies,
		quota:     opts.Quota,
		generator: opts.Generator,
		refund:    opts.RefundOnProviderError,
	}
}

// GenerateRequest is one generation call.
type GenerateRequest struct {
	ClientIP string
	Token    string
	Text     string
}

// GenerateResult is a successful generation.
type GenerateResult struct {
	Text      string
	Identity  auth.Identity
	Decision  quota.Decision
	RateLimit ratelimit.Result
}

// UsageResult is today's usage for the caller.
type UsageResult struct {
	Usage     quota.Usage
	Identity  auth.Identity
	RateLimit ratelimit.Result
}

// TokenResult is a successful signup or login.
type TokenResult struct {
	Token     string
	RateLimit ratelimit.Result
}

// Generate runs IP limit, token check, identity limit, input check, quota and the provider call.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	identity, _, err := p.authenticate(ctx, req.ClientIP, req.Token)
	if err != nil {
		return GenerateResult{}, err
	}
	rate, err := p.checkRate(ctx, p.policies.User, strconv.FormatUint(identity.UserID, 10))
	if err != nil {
		return GenerateResult{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return GenerateResult{}, newError(KindValidation, msgMissingText, nil)
	}

	decision, errQuota := p.quota.CheckAndRecord(ctx, identity.UserID)
	if errQuota != nil {
		return GenerateResult{}, storeError(errQuota)
	}
	if !decision.Allowed {
		log.WithFields(log.Fields{
			"user_id": identity.UserID,
			"used":    decision.Used,
			"limit":   decision.Limit.Value,
		}).Info("daily quota exceeded")
		return GenerateResult{}, &Error{
			Kind:    KindQuotaExceeded,
			Message: msgQuotaExceeded,
			Used:    decision.Used,
			Limit:   decision.Limit,
		}
	}

	text, errGenerate := p.generator.Generate(ctx, req.Text)
	if errGenerate != nil {
		if p.refund && !decision.Limit.Unlimited {
			if errRefund := p.quota.Refund(context.WithoutCancel(ctx), identity.UserID, decision.Day); errRefund != nil {
				log.WithError(errRefund).WithField("user_id", identity.UserID).Warn("quota refund failed")
			}
		}
		return GenerateResult{}, newError(KindProvider, msgProvider, errGenerate)
	}

	return GenerateResult{Text: text, Identity: identity, Decision: decision, RateLimit: rate}, nil
}

// Usage reports today's usage without consuming quota. Only the IP gate applies;
// the identity limiter budget is reserved for generation.
func (p *Pipeline) Usage(ctx context.Context, clientIP, token string) (UsageResult, error) {
	identity, rate, err := p.authenticate(ctx, clientIP, token)
	if err != nil {
		return UsageResult{}, err
	}
	usage, errPeek := p.quota.Peek(ctx, identity.UserID)
	if errPeek != nil {
		return UsageResult{}, storeError(errPeek)
	}
	return UsageResult{Usage: usage, Identity: identity, RateLimit: rate}, nil
}

// Signup registers a user and returns a session token.
func (p *Pipeline) Signup(ctx context.Context, clientIP, username, password string) (TokenResult, error) {
	rate, err := p.authGates(ctx, p.policies.Signup, clientIP, username, password)
	if err != nil {
		return TokenResult{}, err
	}
	token, errSignup := p.auth.Signup(ctx, username, password)
	if errSignup != nil {
		switch {
		case errors.Is(errSignup, users.ErrUsernameTaken):
			return TokenResult{}, newError(KindConflict, msgUsernameTaken, errSignup)
		case errors.Is(errSignup, users.ErrInvalidUsername),
			errors.Is(errSignup, users.ErrPasswordTooShort),
			errors.Is(errSignup, users.ErrPasswordTooLong):
			return TokenResult{}, newError(KindValidation, errSignup.Error(), nil)
		default:
			return TokenResult{}, newError(KindStore, msgInternal, errSignup)
		}
	}
	return TokenResult{Token: token, RateLimit: rate}, nil
}

// Login verifies credentials and returns a session token.
func (p *Pipeline) Login(ctx context.Context, clientIP, username, password string) (TokenResult, error) {
	rate, err := p.authGates(ctx, p.policies.Login, clientIP, username, password)
	if err != nil {
		return TokenResult{}, err
	}
	token, errLogin := p.auth.Login(ctx, username, password)
	if errLogin != nil {
		if errors.Is(errLogin, auth.ErrInvalidCredentials) {
			return TokenResult{}, newError(KindAuth, msgInvalidCredentials, nil)
		}
		return TokenResult{}, newError(KindStore, msgInternal, errLogin)
	}
	return TokenResult{Token: token, RateLimit: rate}, nil
}

// authenticate runs the IP gate and verifies the token.
func (p *Pipeline) authenticate(ctx context.Context, clientIP, token string) (auth.Identity, ratelimit.Result, error) {
	rate, err := p.checkRate(ctx, p.policies.IP, clientIP)
	if err != nil {
		return auth.Identity{}, ratelimit.Result{}, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Identity{}, ratelimit.Result{}, newError(KindAuth, msgMissingToken, nil)
	}
	identity, errVerify := p.auth.VerifyToken(token)
	if errVerify != nil {
		if errors.Is(errVerify, security.ErrTokenExpired) {
			return auth.Identity{}, ratelimit.Result{}, newError(KindAuth, msgExpiredToken, nil)
		}
		return auth.Identity{}, ratelimit.Result{}, newError(KindAuth, msgInvalidToken, nil)
	}
	return identity, rate, nil
}

// storeError classifies a failed quota read. A verified token whose user row
// is gone is treated as an invalid token.
func storeError(err error) error {
	if errors.Is(err, users.ErrUserNotFound) {
		return newError(KindAuth, msgInvalidToken, err)
	}
	return newError(KindStore, msgInternal, err)
}

// authGates runs the IP gate, the endpoint gate and the presence check for credentials.
func (p *Pipeline) authGates(ctx context.Context, policy ratelimit.Policy, clientIP, username, password string) (ratelimit.Result, error) {
	if _, err := p.checkRate(ctx, p.policies.IP, clientIP); err != nil {
		return ratelimit.Result{}, err
	}
	rate, err := p.checkRate(ctx, policy, clientIP)
	if err != nil {
		return ratelimit.Result{}, err
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return ratelimit.Result{}, newError(KindValidation, msgMissingCredentials, nil)
	}
	return rate, nil
}

func (p *Pipeline) checkRate(ctx context.Context, policy ratelimit.Policy, scopeValue string) (ratelimit.Result, error) {
	if p.limiter == nil {
		return ratelimit.Result{Allowed: true}, nil
	}
	result, err := p.limiter.Check(ctx, policy, scopeValue)
	if err != nil {
		return ratelimit.Result{}, newError(KindStore, msgInternal, err)
	}
	if !result.Allowed {
		log.WithFields(log.Fields{
			"policy": policy.Name,
			"scope":  scopeValue,
		}).Debug("rate limit exceeded")
		return result, &Error{Kind: KindRateLimit, Message: msgRateLimited, Reset: result.Reset}
	}
	return result, nil
}
