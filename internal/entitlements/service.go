package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
)

// Apply outcomes, also used as metric labels.
const (
	ResultApplied    = "applied"
	ResultRefreshed  = "refreshed"
	ResultDuplicate  = "duplicate"
	ResultStale      = "stale"
	ResultIgnored    = "ignored"
	ResultUnresolved = "unresolved"
)

// ApplyResult reports what a billing event did to the account's entitlement.
type ApplyResult struct {
	State   enums.EntitlementState
	Applied bool
	Result  string
}

// Summary is the read model served to clients.
type Summary struct {
	AccountID      uuid.UUID              `json:"account_id"`
	State          enums.EntitlementState `json:"state"`
	Entitled       bool                   `json:"entitled"`
	DailyRemaining int                    `json:"daily_remaining"`
	PeriodEnd      *time.Time             `json:"period_end,omitempty"`
}

// Service keeps account entitlements in sync with the billing provider.
type Service interface {
	Apply(ctx context.Context, evt *Event) (*ApplyResult, error)
	Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quotaReader interface {
	Remaining(ctx context.Context, accountID uuid.UUID) (int, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	quota quotaReader
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires the entitlement synchronizer.
func NewService(repo Repository, tx txRunner, quota quotaReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("entitlements repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if quota == nil {
		return nil, fmt.Errorf("quota service required")
	}
	return &service{
		repo:  repo,
		tx:    tx,
		quota: quota,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// Apply folds one provider event into the subscription history. Replays and
// out-of-order deliveries are detected against the active record and dropped
// without error; only infrastructure failures and lost CAS races error out,
// both safe for the provider to retry.
func (s *service) Apply(ctx context.Context, evt *Event) (*ApplyResult, error) {
	if evt == nil || evt.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	accountID, err := s.resolveAccount(ctx, evt)
	if err != nil {
		return nil, err
	}
	if accountID == uuid.Nil {
		s.warn(ctx, fmt.Sprintf("billing event %s: account unresolved, dropping", evt.ID))
		return &ApplyResult{Result: ResultUnresolved}, nil
	}

	target, known := TargetState(evt)

	var result *ApplyResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindActiveByAccount(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active record")
		}

		if record == nil {
			result, err = s.applyFirst(ctx, repo, accountID, evt, target, known)
			return err
		}

		if record.LastEventID == evt.ID {
			result = &ApplyResult{State: record.State, Result: ResultDuplicate}
			return nil
		}
		if evt.Seq < record.LastEventSeq {
			// Stale events must not advance the bookkeeping either, or a
			// replay of the newer event would be mistaken for a duplicate.
			s.warn(ctx, fmt.Sprintf("billing event %s: stale (seq %d < %d), dropping", evt.ID, evt.Seq, record.LastEventSeq))
			result = &ApplyResult{State: record.State, Result: ResultStale}
			return nil
		}
		if !known {
			result = &ApplyResult{State: record.State, Result: ResultIgnored}
			return nil
		}

		if target == record.State {
			return s.refresh(ctx, repo, record, evt, &result)
		}

		if !TransitionAllowed(record.State, target) {
			s.warn(ctx, fmt.Sprintf("billing event %s: transition %s -> %s disallowed, dropping", evt.ID, record.State, target))
			result = &ApplyResult{State: record.State, Result: ResultIgnored}
			return nil
		}

		superseded, err := repo.SupersedeRecord(ctx, record.ID, evt.Seq)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "supersede record")
		}
		if !superseded {
			return pkgerrors.New(pkgerrors.CodeConflict, "concurrent entitlement update")
		}

		next := s.recordFromEvent(accountID, evt, target)
		if next.ExternalCustomerRef == "" {
			next.ExternalCustomerRef = record.ExternalCustomerRef
		}
		if next.ExternalSubscriptionRef == nil {
			next.ExternalSubscriptionRef = record.ExternalSubscriptionRef
		}
		if err := repo.CreateRecord(ctx, next); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "concurrent entitlement update")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create record")
		}
		if err := repo.SetAccountEntitlement(ctx, accountID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update account entitlement")
		}

		result = &ApplyResult{State: target, Applied: true, Result: ResultApplied}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyFirst handles the account's first subscription record.
func (s *service) applyFirst(ctx context.Context, repo Repository, accountID uuid.UUID, evt *Event, target enums.EntitlementState, known bool) (*ApplyResult, error) {
	if !known {
		return &ApplyResult{State: enums.EntitlementFree, Result: ResultIgnored}, nil
	}

	account, err := repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if account == nil {
		s.warn(ctx, fmt.Sprintf("billing event %s: account %s not found, dropping", evt.ID, accountID))
		return &ApplyResult{Result: ResultUnresolved}, nil
	}
	if !TransitionAllowed(account.Entitlement, target) {
		s.warn(ctx, fmt.Sprintf("billing event %s: transition %s -> %s disallowed, dropping", evt.ID, account.Entitlement, target))
		return &ApplyResult{State: account.Entitlement, Result: ResultIgnored}, nil
	}

	record := s.recordFromEvent(accountID, evt, target)
	if err := repo.CreateRecord(ctx, record); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "concurrent entitlement update")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create record")
	}
	if err := repo.SetAccountEntitlement(ctx, accountID, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update account entitlement")
	}
	return &ApplyResult{State: target, Applied: true, Result: ResultApplied}, nil
}

// refresh advances bookkeeping for a same-state event.
func (s *service) refresh(ctx context.Context, repo Repository, record *models.SubscriptionRecord, evt *Event, out **ApplyResult) error {
	record.CurrentPeriodStart = evt.PeriodStart
	record.CurrentPeriodEnd = evt.PeriodEnd
	record.CancelAtPeriodEnd = evt.CancelAtPeriodEnd
	record.LastEventID = evt.ID
	record.LastEventSeq = evt.Seq

	touched, err := repo.TouchRecord(ctx, record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh record")
	}
	if !touched {
		return pkgerrors.New(pkgerrors.CodeConflict, "concurrent entitlement update")
	}
	*out = &ApplyResult{State: record.State, Result: ResultRefreshed}
	return nil
}

func (s *service) recordFromEvent(accountID uuid.UUID, evt *Event, state enums.EntitlementState) *models.SubscriptionRecord {
	record := &models.SubscriptionRecord{
		ID:                  uuid.New(),
		AccountID:           accountID,
		ExternalCustomerRef: evt.CustomerRef,
		State:               state,
		CurrentPeriodStart:  evt.PeriodStart,
		CurrentPeriodEnd:    evt.PeriodEnd,
		CancelAtPeriodEnd:   evt.CancelAtPeriodEnd,
		LastEventID:         evt.ID,
		LastEventSeq:        evt.Seq,
	}
	if evt.SubscriptionRef != "" {
		ref := evt.SubscriptionRef
		record.ExternalSubscriptionRef = &ref
	}
	return record
}

func (s *service) resolveAccount(ctx context.Context, evt *Event) (uuid.UUID, error) {
	if evt.AccountID != uuid.Nil {
		return evt.AccountID, nil
	}
	if evt.CustomerRef == "" {
		return uuid.Nil, nil
	}
	record, err := s.repo.FindActiveByCustomerRef(ctx, evt.CustomerRef)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve customer ref")
	}
	if record == nil {
		return uuid.Nil, nil
	}
	return record.AccountID, nil
}

// Summary assembles the client-facing entitlement view. The state is degraded
// read-only: a cancellation past its period end reads as free without waiting
// for a provider event.
func (s *service) Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}

	record, err := s.repo.FindActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active record")
	}

	remaining, err := s.quota.Remaining(ctx, accountID)
	if err != nil {
		return nil, err
	}

	state := EffectiveState(record, account.Entitlement, s.now().UTC())
	summary := &Summary{
		AccountID:      accountID,
		State:          state,
		Entitled:       state.Entitled(),
		DailyRemaining: remaining,
	}
	if record != nil {
		summary.PeriodEnd = record.CurrentPeriodEnd
	}
	return summary, nil
}

// EffectiveState degrades terminal states whose paid period has lapsed. The
// stored state is left untouched; reconciliation stays event-driven.
func EffectiveState(record *models.SubscriptionRecord, stored enums.EntitlementState, now time.Time) enums.EntitlementState {
	if record == nil {
		if stored == "" {
			return enums.EntitlementFree
		}
		return stored
	}
	state := record.State
	if state == enums.EntitlementCanceling || state == enums.EntitlementCanceled {
		if record.CurrentPeriodEnd != nil && now.After(*record.CurrentPeriodEnd) {
			return enums.EntitlementFree
		}
	}
	return state
}

func (s *service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
