package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:quota_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&models.Account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, day time.Time) (*service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	return &service{
		repo: NewRepository(conn),
		now:  func() time.Time { return day },
	}, conn
}

func seedAccount(t *testing.T, conn *gorm.DB, limit int, window string, used int, state enums.EntitlementState) uuid.UUID {
	t.Helper()
	account := &models.Account{
		ID:               uuid.New(),
		Points:           100,
		Level:            2,
		DailyUsed:        used,
		DailyLimit:       limit,
		QuotaWindowStart: window,
		Entitlement:      state,
	}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account.ID
}

func TestService_TryConsumeCountsDown(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, conn := newTestService(t, day)
	ctx := context.Background()
	accountID := seedAccount(t, conn, 3, "2026-08-31", 0, enums.EntitlementFree)

	for i, want := range []int{2, 1, 0} {
		res, err := svc.TryConsume(ctx, accountID)
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if !res.Allowed || res.Bypassed {
			t.Fatalf("consume %d: expected allowed free-tier result, got %+v", i, res)
		}
		if res.Remaining != want {
			t.Fatalf("consume %d: expected remaining %d, got %d", i, want, res.Remaining)
		}
	}

	res, err := svc.TryConsume(ctx, accountID)
	if err != nil {
		t.Fatalf("fourth consume: %v", err)
	}
	if res.Allowed {
		t.Fatalf("expected fourth consume to be denied, got %+v", res)
	}
}

func TestService_TryConsumeResetsNextDay(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 9, 1, 0, 5, 0, 0, time.UTC)
	svc, conn := newTestService(t, day)
	ctx := context.Background()

	// Exhausted yesterday; the stale window resets lazily on first use.
	accountID := seedAccount(t, conn, 3, "2026-08-31", 3, enums.EntitlementFree)

	res, err := svc.TryConsume(ctx, accountID)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("expected fresh allowance after day rollover, got %+v", res)
	}

	var account models.Account
	if err := conn.First(&account, "id = ?", accountID).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.QuotaWindowStart != "2026-09-01" || account.DailyUsed != 1 {
		t.Fatalf("window not reset: %+v", account)
	}
}

func TestService_TryConsumeEntitledBypass(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, conn := newTestService(t, day)
	ctx := context.Background()

	for _, state := range []enums.EntitlementState{enums.EntitlementActive, enums.EntitlementTrialing} {
		accountID := seedAccount(t, conn, 3, "2026-08-31", 1, state)

		for i := 0; i < 5; i++ {
			res, err := svc.TryConsume(ctx, accountID)
			if err != nil {
				t.Fatalf("%s consume %d: %v", state, i, err)
			}
			if !res.Allowed || !res.Bypassed {
				t.Fatalf("%s: expected bypass, got %+v", state, res)
			}
			if res.Remaining != 2 {
				t.Fatalf("%s: bypass must not touch the counter, remaining=%d", state, res.Remaining)
			}
		}

		var account models.Account
		if err := conn.First(&account, "id = ?", accountID).Error; err != nil {
			t.Fatalf("load account: %v", err)
		}
		if account.DailyUsed != 1 {
			t.Fatalf("%s: counter mutated during bypass: %+v", state, account)
		}
	}
}

func TestService_TryConsumeConcurrentNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, conn := newTestService(t, day)
	ctx := context.Background()
	accountID := seedAccount(t, conn, 3, "2026-08-31", 0, enums.EntitlementFree)

	allowed := make(chan bool, 10)
	var group errgroup.Group
	for i := 0; i < 10; i++ {
		group.Go(func() error {
			res, err := svc.TryConsume(ctx, accountID)
			if err != nil {
				return err
			}
			allowed <- res.Allowed
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent consume: %v", err)
	}
	close(allowed)

	granted := 0
	for ok := range allowed {
		if ok {
			granted++
		}
	}
	if granted != 3 {
		t.Fatalf("expected exactly 3 grants, got %d", granted)
	}
}

func TestService_Remaining(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, conn := newTestService(t, day)
	ctx := context.Background()

	current := seedAccount(t, conn, 3, "2026-08-31", 2, enums.EntitlementFree)
	stale := seedAccount(t, conn, 3, "2026-08-30", 3, enums.EntitlementFree)

	remaining, err := svc.Remaining(ctx, current)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", remaining)
	}

	remaining, err = svc.Remaining(ctx, stale)
	if err != nil {
		t.Fatalf("remaining stale: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("stale window counts as full allowance, got %d", remaining)
	}
}

func TestService_UnknownAccount(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, day)
	ctx := context.Background()

	if _, err := svc.TryConsume(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Remaining(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
