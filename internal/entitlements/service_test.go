package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

type fakeQuota struct {
	remaining int
}

func (f *fakeQuota) Remaining(ctx context.Context, accountID uuid.UUID) (int, error) {
	return f.remaining, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:entitlements_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&models.Account{}, &models.SubscriptionRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, remaining int) (*service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	return &service{
		repo:  NewRepository(conn),
		tx:    db.NewWithConn(conn),
		quota: &fakeQuota{remaining: remaining},
		now:   time.Now,
	}, conn
}

func seedAccount(t *testing.T, conn *gorm.DB, state enums.EntitlementState) uuid.UUID {
	t.Helper()
	account := &models.Account{
		ID:               uuid.New(),
		Points:           100,
		Level:            2,
		DailyLimit:       3,
		QuotaWindowStart: "2026-08-31",
		Entitlement:      state,
	}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account.ID
}

func accountState(t *testing.T, conn *gorm.DB, accountID uuid.UUID) enums.EntitlementState {
	t.Helper()
	var account models.Account
	if err := conn.First(&account, "id = ?", accountID).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	return account.Entitlement
}

func checkoutEvent(accountID uuid.UUID, id string, seq int64) *Event {
	return &Event{
		ID:          id,
		Type:        EventCheckoutCompleted,
		Seq:         seq,
		AccountID:   accountID,
		CustomerRef: "cus_123",
	}
}

func TestService_ApplyFirstEvent(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	res, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Applied || res.State != enums.EntitlementTrialing {
		t.Fatalf("expected trialing applied, got %+v", res)
	}
	if got := accountState(t, conn, accountID); got != enums.EntitlementTrialing {
		t.Fatalf("account entitlement not updated: %s", got)
	}

	var record models.SubscriptionRecord
	if err := conn.First(&record, "account_id = ? AND superseded_at IS NULL", accountID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.LastEventID != "evt_1" || record.LastEventSeq != 100 {
		t.Fatalf("event bookkeeping missing: %+v", record)
	}
	if record.ExternalCustomerRef != "cus_123" {
		t.Fatalf("customer ref not stored: %+v", record)
	}
}

func TestService_ApplyDuplicateEventIsNoop(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	if _, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100)); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	res, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100))
	if err != nil {
		t.Fatalf("replay apply: %v", err)
	}
	if res.Applied || res.Result != ResultDuplicate {
		t.Fatalf("expected duplicate noop, got %+v", res)
	}

	var count int64
	if err := conn.Model(&models.SubscriptionRecord{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 1 {
		t.Fatalf("replay created records: %d", count)
	}
}

func TestService_ApplyStateChangeSupersedes(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	if _, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100)); err != nil {
		t.Fatalf("checkout apply: %v", err)
	}

	res, err := svc.Apply(ctx, &Event{
		ID:        "evt_2",
		Type:      EventInvoicePaid,
		Seq:       200,
		AccountID: accountID,
	})
	if err != nil {
		t.Fatalf("invoice apply: %v", err)
	}
	if !res.Applied || res.State != enums.EntitlementActive {
		t.Fatalf("expected active applied, got %+v", res)
	}

	var records []models.SubscriptionRecord
	if err := conn.Where("account_id = ?", accountID).Order("created_at ASC").Find(&records).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected superseded history of 2, got %d", len(records))
	}
	if records[0].SupersededAt == nil {
		t.Fatal("old record not superseded")
	}
	if records[1].SupersededAt != nil || records[1].State != enums.EntitlementActive {
		t.Fatalf("unexpected active record: %+v", records[1])
	}
	// Customer ref carries over when the follow-up event omits it.
	if records[1].ExternalCustomerRef != "cus_123" {
		t.Fatalf("customer ref not inherited: %+v", records[1])
	}
}

func TestService_ApplyStaleEventDropped(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	if _, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100)); err != nil {
		t.Fatalf("checkout apply: %v", err)
	}
	if _, err := svc.Apply(ctx, &Event{ID: "evt_3", Type: EventInvoicePaid, Seq: 300, AccountID: accountID}); err != nil {
		t.Fatalf("paid apply: %v", err)
	}

	// evt_2 arrives late proposing past_due; the newer active state wins.
	res, err := svc.Apply(ctx, &Event{ID: "evt_2", Type: EventInvoicePaymentFailed, Seq: 200, AccountID: accountID})
	if err != nil {
		t.Fatalf("stale apply: %v", err)
	}
	if res.Applied || res.Result != ResultStale {
		t.Fatalf("expected stale drop, got %+v", res)
	}
	if got := accountState(t, conn, accountID); got != enums.EntitlementActive {
		t.Fatalf("stale event changed state to %s", got)
	}

	// The stale drop must not advance bookkeeping: a replay of evt_3 still
	// reads as a duplicate of the applied event.
	res, err = svc.Apply(ctx, &Event{ID: "evt_3", Type: EventInvoicePaid, Seq: 300, AccountID: accountID})
	if err != nil {
		t.Fatalf("replay apply: %v", err)
	}
	if res.Result != ResultDuplicate {
		t.Fatalf("expected duplicate after stale drop, got %+v", res)
	}
}

func TestService_ApplyDisallowedTransitionDropped(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	// past_due from free is not a legal edge.
	res, err := svc.Apply(ctx, &Event{ID: "evt_1", Type: EventInvoicePaymentFailed, Seq: 100, AccountID: accountID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied || res.Result != ResultIgnored {
		t.Fatalf("expected ignored, got %+v", res)
	}
	if got := accountState(t, conn, accountID); got != enums.EntitlementFree {
		t.Fatalf("account state changed: %s", got)
	}
}

func TestService_ApplyUnknownTypeIgnored(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, 3)
	ctx := context.Background()

	res, err := svc.Apply(ctx, &Event{ID: "evt_1", Type: "customer.updated", Seq: 100, AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied || res.Result != ResultIgnored {
		t.Fatalf("expected ignored, got %+v", res)
	}
}

func TestService_ApplyUnresolvedAccountDropped(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, 3)
	ctx := context.Background()

	res, err := svc.Apply(ctx, &Event{ID: "evt_1", Type: EventInvoicePaid, Seq: 100, CustomerRef: "cus_unknown"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied || res.Result != ResultUnresolved {
		t.Fatalf("expected unresolved drop, got %+v", res)
	}
}

func TestService_ApplyResolvesAccountByCustomerRef(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	if _, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100)); err != nil {
		t.Fatalf("checkout apply: %v", err)
	}

	// Follow-up invoice events often only carry the customer reference.
	res, err := svc.Apply(ctx, &Event{ID: "evt_2", Type: EventInvoicePaid, Seq: 200, CustomerRef: "cus_123"})
	if err != nil {
		t.Fatalf("invoice apply: %v", err)
	}
	if !res.Applied || res.State != enums.EntitlementActive {
		t.Fatalf("expected active applied via customer ref, got %+v", res)
	}
	if got := accountState(t, conn, accountID); got != enums.EntitlementActive {
		t.Fatalf("account not activated: %s", got)
	}
}

func TestService_ApplySameStateRefreshesPeriod(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 3)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	if _, err := svc.Apply(ctx, checkoutEvent(accountID, "evt_1", 100)); err != nil {
		t.Fatalf("checkout apply: %v", err)
	}
	if _, err := svc.Apply(ctx, &Event{ID: "evt_2", Type: EventInvoicePaid, Seq: 200, AccountID: accountID}); err != nil {
		t.Fatalf("paid apply: %v", err)
	}

	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.Apply(ctx, &Event{
		ID:        "evt_3",
		Type:      EventInvoicePaid,
		Seq:       300,
		AccountID: accountID,
		PeriodEnd: &periodEnd,
	})
	if err != nil {
		t.Fatalf("renewal apply: %v", err)
	}
	if res.Applied || res.Result != ResultRefreshed {
		t.Fatalf("expected refresh, got %+v", res)
	}

	var record models.SubscriptionRecord
	if err := conn.First(&record, "account_id = ? AND superseded_at IS NULL", accountID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.LastEventID != "evt_3" || record.LastEventSeq != 300 {
		t.Fatalf("bookkeeping not advanced: %+v", record)
	}
	if record.CurrentPeriodEnd == nil || !record.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("period end not refreshed: %+v", record)
	}
}

func TestService_Summary(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t, 2)
	ctx := context.Background()
	accountID := seedAccount(t, conn, enums.EntitlementFree)

	summary, err := svc.Summary(ctx, accountID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.State != enums.EntitlementFree || summary.Entitled {
		t.Fatalf("expected free summary, got %+v", summary)
	}
	if summary.DailyRemaining != 2 {
		t.Fatalf("expected remaining 2, got %d", summary.DailyRemaining)
	}
}

func TestEffectiveState(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	if got := EffectiveState(nil, "", now); got != enums.EntitlementFree {
		t.Fatalf("nil record should read free, got %s", got)
	}
	if got := EffectiveState(nil, enums.EntitlementFree, now); got != enums.EntitlementFree {
		t.Fatalf("expected free, got %s", got)
	}

	canceling := &models.SubscriptionRecord{State: enums.EntitlementCanceling, CurrentPeriodEnd: &future}
	if got := EffectiveState(canceling, enums.EntitlementCanceling, now); got != enums.EntitlementCanceling {
		t.Fatalf("canceling within period should hold, got %s", got)
	}

	canceling.CurrentPeriodEnd = &past
	if got := EffectiveState(canceling, enums.EntitlementCanceling, now); got != enums.EntitlementFree {
		t.Fatalf("lapsed cancellation should read free, got %s", got)
	}

	canceled := &models.SubscriptionRecord{State: enums.EntitlementCanceled, CurrentPeriodEnd: &past}
	if got := EffectiveState(canceled, enums.EntitlementCanceled, now); got != enums.EntitlementFree {
		t.Fatalf("lapsed canceled should read free, got %s", got)
	}

	active := &models.SubscriptionRecord{State: enums.EntitlementActive, CurrentPeriodEnd: &past}
	if got := EffectiveState(active, enums.EntitlementActive, now); got != enums.EntitlementActive {
		t.Fatalf("active never degrades read-only, got %s", got)
	}
}
