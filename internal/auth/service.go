package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/router-for-me/StudyGateway/internal/models"
	"github.com/router-for-me/StudyGateway/internal/security"
	"github.com/router-for-me/StudyGateway/internal/users"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when the username does not exist so both login paths pay the bcrypt cost.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := security.HashPassword("not-a-real-password")
	return hash
})

// Identity is the authenticated caller carried by a valid token.
type Identity struct {
	UserID   uint64
	Username string
}

// CredentialStore is the subset of the user store the service depends on.
type CredentialStore interface {
	Create(ctx context.Context, username, password string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	VerifyPassword(password, storedHash string) bool
}

// Service issues and verifies session tokens.
type Service struct {
	store  CredentialStore
	secret string
	expiry time.Duration
	now    func() time.Time
}

// NewService constructs a Service. The secret is fixed for the life of the process.
func NewService(store CredentialStore, secret string, expiry time.Duration) *Service {
	return &Service{
		store:  store,
		secret: secret,
		expiry: expiry,
		now:    time.Now,
	}
}

// Signup creates the user and returns a fresh session token.
func (s *Service) Signup(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.Create(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.IssueToken(user.ID, user.Username)
}

// Login verifies the credentials and returns a fresh session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.store.VerifyPassword(password, dummyHash())
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !s.store.VerifyPassword(password, user.Password) {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(user.ID, user.Username)
}

// IssueToken signs a token for the user.
func (s *Service) IssueToken(userID uint64, username string) (string, error) {
	return security.IssueUserToken(s.secret, userID, username, s.now(), s.expiry)
}

// VerifyToken checks signature, structure and expiry.
func (s *Service) VerifyToken(token string) (Identity, error) {
	claims, err := security.ParseUserToken(s.secret, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
