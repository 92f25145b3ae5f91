package users

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	dbutil "github.com/router-for-me/StudyGateway/internal/db"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := dbutil.Open("file:" + filepath.Join(t.TempDir(), "users-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestStoreCreateAndFind(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	user, err := store.Create(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == 0 || user.Tier != 0 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Password == "secret1" {
		t.Fatalf("password stored in clear text")
	}

	found, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("expected id %d, got %d", user.ID, found.ID)
	}
	if !store.VerifyPassword("secret1", found.Password) {
		t.Fatalf("expected password to verify")
	}
	if store.VerifyPassword("secret2", found.Password) {
		t.Fatalf("expected wrong password to fail")
	}

	if _, errFind := store.FindByUsername(ctx, "ALICE"); !errors.Is(errFind, ErrUserNotFound) {
		t.Fatalf("expected case-sensitive lookup miss, got %v", errFind)
	}
}

func TestStoreCreateDuplicate(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	first, err := store.Create(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, errDup := store.Create(ctx, "alice", "another-pass"); !errors.Is(errDup, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", errDup)
	}

	found, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Password != first.Password {
		t.Fatalf("original record was overwritten")
	}
}

func TestStoreCreateValidation(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	cases := []struct {
		username string
		password string
		want     error
	}{
		{"al", "secret1", ErrInvalidUsername},
		{" alice", "secret1", ErrInvalidUsername},
		{strings.Repeat("a", MaxUsernameLength+1), "secret1", ErrInvalidUsername},
		{"alice", "12345", ErrPasswordTooShort},
		{"alice", strings.Repeat("p", MaxPasswordLength+1), ErrPasswordTooLong},
	}
	for _, tc := range cases {
		if _, err := store.Create(ctx, tc.username, tc.password); !errors.Is(err, tc.want) {
			t.Fatalf("Create(%q, len=%d): expected %v, got %v", tc.username, len(tc.password), tc.want, err)
		}
	}
}

func TestStoreTier(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	user, err := store.Create(ctx, "bob", "secret1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tier, err := store.GetTier(ctx, user.ID)
	if err != nil || tier != 0 {
		t.Fatalf("expected tier 0, got %d (%v)", tier, err)
	}

	if errSet := store.SetTier(ctx, "bob", 2); errSet != nil {
		t.Fatalf("set tier: %v", errSet)
	}
	tier, err = store.GetTier(ctx, user.ID)
	if err != nil || tier != 2 {
		t.Fatalf("expected tier 2, got %d (%v)", tier, err)
	}

	if errSet := store.SetTier(ctx, "nobody", 1); !errors.Is(errSet, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errSet)
	}
	if errSet := store.SetTier(ctx, "bob", -1); !errors.Is(errSet, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", errSet)
	}
	if _, errTier := store.GetTier(ctx, 9999); !errors.Is(errTier, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errTier)
	}
}
