package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/router-for-me/StudyGateway/internal/models"
)

func TestMigrate_UniqueUsernameAndUsageKey(t *testing.T) {
	conn, err := Open("file:" + filepath.Join(t.TempDir(), "gw-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("second migrate: %v", errMigrate)
	}

	now := time.Now().UTC()
	first := models.User{Username: "alice", Password: "hash", CreatedAt: now, UpdatedAt: now}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	dup := models.User{Username: "alice", Password: "other", CreatedAt: now, UpdatedAt: now}
	errDup := conn.Create(&dup).Error
	if !IsUniqueViolation(errDup) {
		t.Fatalf("expected unique violation, got %v", errDup)
	}

	other := models.User{Username: "Alice", Password: "hash", CreatedAt: now, UpdatedAt: now}
	if errCreate := conn.Create(&other).Error; errCreate != nil {
		t.Fatalf("usernames should be case-sensitive: %v", errCreate)
	}

	row := models.DailyUsage{UserID: first.ID, UsageDate: "2025-01-01", Count: 1}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("create usage: %v", errCreate)
	}
	dupRow := models.DailyUsage{UserID: first.ID, UsageDate: "2025-01-01", Count: 1}
	if errDupRow := conn.Create(&dupRow).Error; !IsUniqueViolation(errDupRow) {
		t.Fatalf("expected unique violation for usage key, got %v", errDupRow)
	}
}

func TestBuildSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"gw.db":                   "file:gw.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		"file:gw.db?mode=rwc":     "file:gw.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		"file:gw.db?_pragma=x(1)": "file:gw.db?_pragma=x(1)",
	}
	for in, want := range cases {
		if got := BuildSQLiteDSN(in); got != want {
			t.Fatalf("BuildSQLiteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
