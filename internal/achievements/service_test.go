package achievements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

type fakeLedger struct {
	credits []int
	fail    error
}

func (f *fakeLedger) Credit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.credits = append(f.credits, amount)
	return amount, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:achievements_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&models.RewardGrant{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, ledger *fakeLedger) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), ledger, nil, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestService_EvaluateGrantsOnCrossing(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{}
	svc, _ := newTestService(t, ledger)
	ctx := context.Background()
	accountID := uuid.New()

	granted, err := svc.Evaluate(ctx, accountID, StatUploads, 0, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(granted) != 1 || granted[0].RewardID != "first_upload" {
		t.Fatalf("expected first_upload grant, got %+v", granted)
	}
	if len(ledger.credits) != 1 || ledger.credits[0] != 5 {
		t.Fatalf("expected 5 bonus points credited, got %v", ledger.credits)
	}
}

func TestService_EvaluateSkipsUncrossedThresholds(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeLedger{})
	ctx := context.Background()
	accountID := uuid.New()

	granted, err := svc.Evaluate(ctx, accountID, StatUploads, 1, 9)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(granted) != 0 {
		t.Fatalf("no threshold crossed, got %+v", granted)
	}

	// Decreasing stats never grant.
	granted, err = svc.Evaluate(ctx, accountID, StatPoints, 600, 400)
	if err != nil {
		t.Fatalf("evaluate decrease: %v", err)
	}
	if len(granted) != 0 {
		t.Fatalf("decrease must not grant, got %+v", granted)
	}
}

func TestService_EvaluateIdempotent(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{}
	svc, conn := newTestService(t, ledger)
	ctx := context.Background()
	accountID := uuid.New()

	if _, err := svc.Evaluate(ctx, accountID, StatClaims, 0, 1); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	granted, err := svc.Evaluate(ctx, accountID, StatClaims, 0, 1)
	if err != nil {
		t.Fatalf("replay evaluate: %v", err)
	}
	if len(granted) != 0 {
		t.Fatalf("replayed crossing must not regrant, got %+v", granted)
	}

	var count int64
	if err := conn.Model(&models.RewardGrant{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		t.Fatalf("count grants: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single grant row, got %d", count)
	}
	if len(ledger.credits) != 0 {
		t.Fatalf("first_claim has no bonus, credits: %v", ledger.credits)
	}
}

func TestService_EvaluateMultipleCrossings(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{}
	svc, _ := newTestService(t, ledger)
	ctx := context.Background()
	accountID := uuid.New()

	// A bulk import can jump a stat across several thresholds at once.
	granted, err := svc.Evaluate(ctx, accountID, StatUploads, 0, 12)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(granted) != 2 {
		t.Fatalf("expected 2 grants, got %+v", granted)
	}
	if granted[0].RewardID != "first_upload" || granted[1].RewardID != "prolific_poster" {
		t.Fatalf("unexpected grant order: %+v", granted)
	}
	if len(ledger.credits) != 2 || ledger.credits[0] != 5 || ledger.credits[1] != 25 {
		t.Fatalf("unexpected bonus credits: %v", ledger.credits)
	}
}

func TestService_EvaluateLedgerFailureDoesNotBlockGrant(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{fail: context.DeadlineExceeded}
	svc, conn := newTestService(t, ledger)
	ctx := context.Background()
	accountID := uuid.New()

	granted, err := svc.Evaluate(ctx, accountID, StatUploads, 0, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(granted) != 1 {
		t.Fatalf("grant should survive a failed bonus credit, got %+v", granted)
	}

	var count int64
	if err := conn.Model(&models.RewardGrant{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		t.Fatalf("count grants: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected grant row, got %d", count)
	}
}
