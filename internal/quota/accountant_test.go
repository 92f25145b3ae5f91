package quota

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	dbutil "github.com/router-for-me/StudyGateway/internal/db"
	"github.com/router-for-me/StudyGateway/internal/models"
	"github.com/router-for-me/StudyGateway/internal/users"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := dbutil.Open("file:" + filepath.Join(t.TempDir(), "quota-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func int64Ptr(v int64) *int64 { return &v }

func testTable() TierTable {
	return NewTierTable(map[int]*int64{0: int64Ptr(5), 1: int64Ptr(100), 2: nil})
}

func createUser(t *testing.T, store *users.Store, name string, tier int) uint64 {
	t.Helper()
	user, err := store.Create(context.Background(), name, "password1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if tier != 0 {
		if errTier := store.SetTier(context.Background(), name, tier); errTier != nil {
			t.Fatalf("set tier: %v", errTier)
		}
	}
	return user.ID
}

func TestTierTableResolve(t *testing.T) {
	table := testTable()
	if got := table.Resolve(0); got.Unlimited || got.Value != 5 {
		t.Fatalf("tier 0: %+v", got)
	}
	if got := table.Resolve(2); !got.Unlimited {
		t.Fatalf("tier 2 should be unlimited: %+v", got)
	}
	if got := table.Resolve(9); got.Unlimited || got.Value != 5 {
		t.Fatalf("unknown tier should fall back to tier 0, got %+v", got)
	}
}

func TestLimitMarshalJSON(t *testing.T) {
	body, err := json.Marshal(Usage{Used: 3, Limit: Unlimited()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != `{"used":3,"limit":null}` {
		t.Fatalf("unexpected body %s", body)
	}
	body, err = json.Marshal(Usage{Used: 1, Limit: Finite(20)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != `{"used":1,"limit":20}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestCheckAndRecordStopsAtLimit(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "alice", 0)
	acct := NewAccountant(conn, store, testTable(), time.UTC)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		decision, err := acct.CheckAndRecord(ctx, userID)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !decision.Allowed || decision.Used != int64(i) {
			t.Fatalf("call %d: unexpected decision %+v", i, decision)
		}
	}

	decision, err := acct.CheckAndRecord(ctx, userID)
	if err != nil {
		t.Fatalf("over limit: %v", err)
	}
	if decision.Allowed || decision.Used != 5 || decision.Limit.Value != 5 {
		t.Fatalf("expected denial at used=5, got %+v", decision)
	}

	usage, err := acct.Peek(ctx, userID)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if usage.Used != 5 {
		t.Fatalf("expected used=5 after denial, got %d", usage.Used)
	}
}

func TestCheckAndRecordConcurrent(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "bob", 0)
	acct := NewAccountant(conn, store, testTable(), time.UTC)

	const limit = 5
	var admitted atomic.Int64
	var g errgroup.Group
	for i := 0; i < limit+1; i++ {
		g.Go(func() error {
			decision, err := acct.CheckAndRecord(context.Background(), userID)
			if err != nil {
				return err
			}
			if decision.Allowed {
				admitted.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent check: %v", err)
	}
	if admitted.Load() != limit {
		t.Fatalf("expected %d admitted, got %d", limit, admitted.Load())
	}

	usage, err := acct.Peek(context.Background(), userID)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if usage.Used != limit {
		t.Fatalf("expected used=%d, got %d", limit, usage.Used)
	}
}

func TestCheckAndRecordUnlimited(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "carol", 2)
	acct := NewAccountant(conn, store, testTable(), time.UTC)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		decision, err := acct.CheckAndRecord(ctx, userID)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !decision.Allowed || !decision.Limit.Unlimited {
			t.Fatalf("call %d: expected unlimited admission, got %+v", i, decision)
		}
	}

	// A counter left from a previous finite tier is still reported.
	row := models.DailyUsage{UserID: userID, UsageDate: acct.Today(), Count: 7}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed counter: %v", errCreate)
	}
	usage, err := acct.Peek(ctx, userID)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if usage.Used != 7 || !usage.Limit.Unlimited {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestPeekWithoutUsage(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "dave", 1)
	acct := NewAccountant(conn, store, testTable(), time.UTC)

	usage, err := acct.Peek(context.Background(), userID)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if usage.Used != 0 || usage.Limit.Value != 100 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestCountersResetPerDay(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "erin", 0)
	acct := NewAccountant(conn, store, testTable(), time.UTC)
	day := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	acct.now = func() time.Time { return day }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := acct.CheckAndRecord(ctx, userID); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if decision, _ := acct.CheckAndRecord(ctx, userID); decision.Allowed {
		t.Fatalf("expected denial on the same day")
	}

	day = day.Add(2 * time.Minute)
	decision, err := acct.CheckAndRecord(ctx, userID)
	if err != nil {
		t.Fatalf("next day: %v", err)
	}
	if !decision.Allowed || decision.Used != 1 {
		t.Fatalf("expected fresh counter on the next day, got %+v", decision)
	}
}

func TestRefund(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "frank", 0)
	acct := NewAccountant(conn, store, testTable(), time.UTC)
	ctx := context.Background()

	if errRefund := acct.Refund(ctx, userID, acct.Today()); errRefund != nil {
		t.Fatalf("refund without usage: %v", errRefund)
	}
	decision, err := acct.CheckAndRecord(ctx, userID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Day != acct.Today() {
		t.Fatalf("expected decision day %q, got %q", acct.Today(), decision.Day)
	}
	if errRefund := acct.Refund(ctx, userID, decision.Day); errRefund != nil {
		t.Fatalf("refund: %v", errRefund)
	}
	if errRefund := acct.Refund(ctx, userID, decision.Day); errRefund != nil {
		t.Fatalf("second refund: %v", errRefund)
	}
	usage, err := acct.Peek(ctx, userID)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if usage.Used != 0 {
		t.Fatalf("expected used=0 after refund, got %d", usage.Used)
	}
}

func TestRefundAfterMidnight(t *testing.T) {
	conn := openTestDB(t)
	store := users.NewStore(conn)
	userID := createUser(t, store, "grace", 0)
	acct := NewAccountant(conn, store, testTable(), time.UTC)
	now := time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC)
	acct.now = func() time.Time { return now }
	ctx := context.Background()

	failed, err := acct.CheckAndRecord(ctx, userID)
	if err != nil || !failed.Allowed {
		t.Fatalf("late call: decision=%+v err=%v", failed, err)
	}

	now = now.Add(2 * time.Second)
	if decision, errNext := acct.CheckAndRecord(ctx, userID); errNext != nil || !decision.Allowed {
		t.Fatalf("next day call: decision=%+v err=%v", decision, errNext)
	}
	if errRefund := acct.Refund(ctx, userID, failed.Day); errRefund != nil {
		t.Fatalf("refund: %v", errRefund)
	}

	for day, want := range map[string]int64{"2025-03-01": 0, "2025-03-02": 1} {
		got, errRead := readCount(conn, userID, day)
		if errRead != nil {
			t.Fatalf("read %s: %v", day, errRead)
		}
		if got != want {
			t.Fatalf("expected %s count=%d, got %d", day, want, got)
		}
	}
}

func TestPruneOnce(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for _, day := range []string{"2025-05-01", "2025-05-16", "2025-06-15"} {
		row := models.DailyUsage{UserID: 1, UsageDate: day, Count: 1}
		if errCreate := conn.Create(&row).Error; errCreate != nil {
			t.Fatalf("seed %s: %v", day, errCreate)
		}
	}

	pruner := NewPruner(conn, 30, time.UTC)
	pruner.now = func() time.Time { return now }
	removed, err := pruner.PruneOnce(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 row removed, got %d", removed)
	}

	var remaining int64
	if errCount := conn.Model(&models.DailyUsage{}).Count(&remaining).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 rows left, got %d", remaining)
	}
	if NewPruner(conn, 0, time.UTC) != nil {
		t.Fatalf("expected nil pruner when retention is disabled")
	}
}
