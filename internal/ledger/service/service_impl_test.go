package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/clock"
	"github.com/loyaltyworks/tally/internal/events"
	"github.com/loyaltyworks/tally/internal/ledger/domain"
	"github.com/loyaltyworks/tally/internal/ledger/repository"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

type fakeProgram struct {
	cfg programdomain.Config
}

func (f fakeProgram) Current(context.Context) (programdomain.Config, error) {
	return f.cfg, nil
}

func (f fakeProgram) Update(context.Context, programdomain.UpdateRequest) (programdomain.Config, error) {
	return f.cfg, nil
}

func defaultProgram() fakeProgram {
	return fakeProgram{cfg: programdomain.Config{
		UnitCost:        500,
		InflationFactor: 1.0,
		TriggerState:    "delivered",
		DailyStampCap:   1,
		StampMinAmount:  0,
		Enabled:         true,
	}}
}

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			user_id BIGINT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stamp_cards (
			user_id BIGINT PRIMARY KEY,
			current_count BIGINT NOT NULL DEFAULT 0,
			lifetime_count BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			currency TEXT NOT NULL,
			kind TEXT NOT NULL,
			delta BIGINT NOT NULL,
			source TEXT NOT NULL,
			reference_type TEXT NOT NULL,
			reference_id TEXT NOT NULL,
			amount_basis BIGINT,
			reason TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (source, reference_type, reference_id, kind, currency)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_stamp_register (
			user_id BIGINT NOT NULL,
			calendar_day TEXT NOT NULL,
			ledger_entry_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, calendar_day)
		)`,
		`CREATE TABLE IF NOT EXISTS notification_events (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, program programdomain.Service, at time.Time) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		repo:       repository.Provide(),
		outbox:     events.NewOutbox(db, node),
		programSvc: program,
		clock:      clock.Fixed{T: at},
	}
}

func countEntries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Table("ledger_entries").Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return count
}

func TestApplyPointsIdempotent(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	req := domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1001",
		Amount:        12499,
	}

	first, err := svc.ApplyPoints(ctx, req)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !first.Applied || first.Delta != 24 {
		t.Fatalf("expected applied delta 24, got %+v", first)
	}

	second, err := svc.ApplyPoints(ctx, req)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second.Applied || second.Reason != domain.ReasonAlreadyApplied {
		t.Fatalf("expected already_applied no-op, got %+v", second)
	}

	if got := countEntries(t, db); got != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", got)
	}

	view, err := svc.Balance(ctx, 42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if view.PointsBalance != 24 {
		t.Fatalf("expected balance 24, got %d", view.PointsBalance)
	}
}

func TestApplyPointsNoRewardDue(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)

	result, err := svc.ApplyPoints(context.Background(), domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-small",
		Amount:        499,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Applied || result.Reason != domain.ReasonNoRewardDue {
		t.Fatalf("expected no_reward_due no-op, got %+v", result)
	}
	if got := countEntries(t, db); got != 0 {
		t.Fatalf("expected no ledger entries, got %d", got)
	}
}

func TestApplyPointsProgramDisabled(t *testing.T) {
	db := setupLedgerTestDB(t)
	program := defaultProgram()
	program.cfg.Enabled = false
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, program, at)

	result, err := svc.ApplyPoints(context.Background(), domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Amount:        5000,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Applied || result.Reason != domain.ReasonDisabled {
		t.Fatalf("expected program_disabled no-op, got %+v", result)
	}
}

func TestApplyStampDailyCap(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	first, err := svc.ApplyStamp(ctx, domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Amount:        3000,
	})
	if err != nil {
		t.Fatalf("first stamp: %v", err)
	}
	if !first.Applied || first.Delta != 1 {
		t.Fatalf("expected one stamp applied, got %+v", first)
	}

	// A different sale on the same calendar day must hit the cap, and the
	// capped attempt must leave no journal row behind.
	second, err := svc.ApplyStamp(ctx, domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-2",
		Amount:        4000,
	})
	if err != nil {
		t.Fatalf("second stamp: %v", err)
	}
	if second.Applied || second.Reason != domain.ReasonDailyLimit {
		t.Fatalf("expected daily_limit no-op, got %+v", second)
	}

	if got := countEntries(t, db); got != 1 {
		t.Fatalf("expected 1 ledger entry after capped attempt, got %d", got)
	}

	view, err := svc.Balance(ctx, 42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if view.StampCount != 1 || view.LifetimeCount != 1 {
		t.Fatalf("expected one stamp, got %+v", view)
	}

	// Next day the same user earns again.
	svc.clock = clock.Fixed{T: at.Add(24 * time.Hour)}
	third, err := svc.ApplyStamp(ctx, domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-3",
		Amount:        3000,
	})
	if err != nil {
		t.Fatalf("third stamp: %v", err)
	}
	if !third.Applied {
		t.Fatalf("expected stamp applied on next day, got %+v", third)
	}
}

func TestApplyStampIdempotentReplay(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	req := domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Amount:        3000,
	}
	if _, err := svc.ApplyStamp(ctx, req); err != nil {
		t.Fatalf("first stamp: %v", err)
	}

	// Replaying the same sale is already_applied, not daily_limit: the
	// idempotency check runs before the register claim.
	replay, err := svc.ApplyStamp(ctx, req)
	if err != nil {
		t.Fatalf("replay stamp: %v", err)
	}
	if replay.Applied || replay.Reason != domain.ReasonAlreadyApplied {
		t.Fatalf("expected already_applied no-op, got %+v", replay)
	}
}

func TestApplyStampBelowMinimum(t *testing.T) {
	db := setupLedgerTestDB(t)
	program := defaultProgram()
	program.cfg.StampMinAmount = 2000
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, program, at)

	result, err := svc.ApplyStamp(context.Background(), domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Amount:        1500,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Applied || result.Reason != domain.ReasonBelowMinimum {
		t.Fatalf("expected below_minimum_amount no-op, got %+v", result)
	}
}

func TestRevokeNetsToZeroOnce(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	if _, err := svc.ApplyPoints(ctx, domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Amount:        12499,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	revokeReq := domain.RevokeRequest{
		Currency:      domain.CurrencyPoints,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Reason:        "sale_canceled",
	}
	first, err := svc.Revoke(ctx, revokeReq)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !first.Applied || first.Delta != -24 {
		t.Fatalf("expected -24 reversal, got %+v", first)
	}

	second, err := svc.Revoke(ctx, revokeReq)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if second.Applied || second.Reason != domain.ReasonAlreadyApplied {
		t.Fatalf("expected already_applied no-op, got %+v", second)
	}

	if got := countEntries(t, db); got != 2 {
		t.Fatalf("expected earn + revoke, got %d entries", got)
	}

	view, err := svc.Balance(ctx, 42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if view.PointsBalance != 0 {
		t.Fatalf("expected zero balance after revoke, got %d", view.PointsBalance)
	}
}

func TestRevokeStampFreesDailyRegister(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	if _, err := svc.ApplyStamp(ctx, domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Amount:        3000,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := svc.Revoke(ctx, domain.RevokeRequest{
		Currency:      domain.CurrencyStamps,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-1",
		Reason:        "sale_canceled",
	}); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	view, err := svc.Balance(ctx, 42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if view.StampCount != 0 {
		t.Fatalf("expected zero stamps, got %d", view.StampCount)
	}
	// Lifetime count is not decremented by a revoke.
	if view.LifetimeCount != 1 {
		t.Fatalf("expected lifetime 1, got %d", view.LifetimeCount)
	}

	// The register slot is freed, so a later sale the same day can earn.
	later, err := svc.ApplyStamp(ctx, domain.AccrualRequest{
		UserID:        42,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-2",
		Amount:        3000,
	})
	if err != nil {
		t.Fatalf("later stamp: %v", err)
	}
	if !later.Applied {
		t.Fatalf("expected stamp applied after revoke freed the day, got %+v", later)
	}
}

func TestRevokeWithoutEarn(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)

	result, err := svc.Revoke(context.Background(), domain.RevokeRequest{
		Currency:      domain.CurrencyPoints,
		Source:        domain.SourcePOS,
		ReferenceType: domain.ReferenceTypePurchase,
		ReferenceID:   "sale-unknown",
		Reason:        "sale_canceled",
	})
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if result.Applied || result.Reason != domain.ReasonNoEarnFound {
		t.Fatalf("expected no_earn_entry no-op, got %+v", result)
	}
}

func TestManualAdjustRequiresActorAndReason(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	_, err := svc.ManualAdjust(ctx, domain.ManualAdjustRequest{
		UserID:   42,
		Currency: domain.CurrencyPoints,
		Delta:    100,
		Reason:   "goodwill",
	})
	if !errors.Is(err, domain.ErrActorRequired) {
		t.Fatalf("expected actor_required, got %v", err)
	}

	_, err = svc.ManualAdjust(ctx, domain.ManualAdjustRequest{
		UserID:   42,
		Currency: domain.CurrencyPoints,
		Delta:    100,
		Actor:    "ops@example.com",
	})
	if !errors.Is(err, domain.ErrReasonRequired) {
		t.Fatalf("expected reason_required, got %v", err)
	}

	if got := countEntries(t, db); got != 0 {
		t.Fatalf("expected no writes from rejected requests, got %d", got)
	}
}

func TestManualAdjustIdempotentByToken(t *testing.T) {
	db := setupLedgerTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, defaultProgram(), at)
	ctx := context.Background()

	req := domain.ManualAdjustRequest{
		UserID:   42,
		Currency: domain.CurrencyPoints,
		Delta:    250,
		Actor:    "ops@example.com",
		Reason:   "goodwill",
		Token:    "ticket-9001",
	}

	first, err := svc.ManualAdjust(ctx, req)
	if err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	if !first.Applied {
		t.Fatalf("expected applied, got %+v", first)
	}

	second, err := svc.ManualAdjust(ctx, req)
	if err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if second.Applied || second.Reason != domain.ReasonAlreadyApplied {
		t.Fatalf("expected already_applied no-op, got %+v", second)
	}

	view, err := svc.Balance(ctx, 42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if view.PointsBalance != 250 {
		t.Fatalf("expected balance 250, got %d", view.PointsBalance)
	}
}
