// Package users persists user identities, password hashes and service tiers.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	dbutil "github.com/router-for-me/StudyGateway/internal/db"
	"github.com/router-for-me/StudyGateway/internal/models"
	"github.com/router-for-me/StudyGateway/internal/security"
	"gorm.io/gorm"
)

// Username and password policy bounds.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

var (
	ErrInvalidUsername  = fmt.Errorf("username must be %d-%d characters without surrounding spaces", MinUsernameLength, MaxUsernameLength)
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	ErrUsernameTaken    = errors.New("username already taken")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidTier      = errors.New("tier must be non-negative")
)

// Store is the gorm-backed credential store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ValidateCredentials checks the username and password policy without touching storage.
func ValidateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength || strings.TrimSpace(username) != username {
		return ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Create stores a new user with a hashed password at tier 0.
// Uniqueness is enforced by the users.username unique index.
func (s *Store) Create(ctx context.Context, username, password string) (*models.User, error) {
	if errValidate := ValidateCredentials(username, password); errValidate != nil {
		return nil, errValidate
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, errHash
	}

	now := s.now()
	user := models.User{
		Username:  username,
		Password:  hash,
		Tier:      0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", errCreate)
	}
	return &user, nil
}

// FindByUsername looks up a user by exact username.
func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", errFind)
	}
	return &user, nil
}

// VerifyPassword compares password with the stored hash in constant time.
func (s *Store) VerifyPassword(password, storedHash string) bool {
	return security.CheckPassword(storedHash, password)
}

// GetTier reads the current tier for userID.
func (s *Store) GetTier(ctx context.Context, userID uint64) (int, error) {
	var row struct {
		Tier int
	}
	if errFind := s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("tier").
		Where("id = ?", userID).
		Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get tier: %w", errFind)
	}
	return row.Tier, nil
}

// SetTier changes a user's tier. It backs the administrative CLI only.
func (s *Store) SetTier(ctx context.Context, username string, tier int) error {
	if tier < 0 {
		return ErrInvalidTier
	}
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Updates(map[string]any{
			"tier":       tier,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("set tier: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
