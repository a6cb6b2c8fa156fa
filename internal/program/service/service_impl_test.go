package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/cache"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

func setupProgramTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS program_configs (
			id BIGINT PRIMARY KEY,
			unit_cost BIGINT NOT NULL,
			inflation_factor REAL NOT NULL DEFAULT 1.0,
			trigger_state TEXT NOT NULL,
			daily_stamp_cap BIGINT NOT NULL DEFAULT 1,
			stamp_min_amount BIGINT NOT NULL DEFAULT 0,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			updated_by TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create program_configs: %v", err)
	}
	return db
}

func newProgramTestService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		log:   zap.NewNop(),
		cache: cache.New[string, programdomain.Config](30 * time.Second),
	}
}

func seedProgram(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO program_configs (
			id, unit_cost, inflation_factor, trigger_state,
			daily_stamp_cap, stamp_min_amount, enabled, updated_by, updated_at
		) VALUES (1, 500, 1.0, 'delivered', 1, 0, true, 'seed', ?)`,
		time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("seed program: %v", err)
	}
}

func TestCurrentNotConfigured(t *testing.T) {
	db := setupProgramTestDB(t)
	svc := newProgramTestService(db)

	_, err := svc.Current(context.Background())
	if !errors.Is(err, programdomain.ErrNotConfigured) {
		t.Fatalf("expected program_not_configured, got %v", err)
	}
}

func TestCurrentServesFromCache(t *testing.T) {
	db := setupProgramTestDB(t)
	seedProgram(t, db)
	svc := newProgramTestService(db)
	ctx := context.Background()

	first, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if first.UnitCost != 500 {
		t.Fatalf("expected unit cost 500, got %d", first.UnitCost)
	}

	// A direct database change is invisible until the cache turns over.
	if err := db.Exec(`UPDATE program_configs SET unit_cost = 900`).Error; err != nil {
		t.Fatalf("raw update: %v", err)
	}
	cached, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("cached current: %v", err)
	}
	if cached.UnitCost != 500 {
		t.Fatalf("expected cached unit cost 500, got %d", cached.UnitCost)
	}
}

func TestUpdateFlushesCache(t *testing.T) {
	db := setupProgramTestDB(t)
	seedProgram(t, db)
	svc := newProgramTestService(db)
	ctx := context.Background()

	if _, err := svc.Current(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	unitCost := int64(750)
	updated, err := svc.Update(ctx, programdomain.UpdateRequest{
		UnitCost: &unitCost,
		Actor:    "ops@example.com",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UnitCost != 750 || updated.UpdatedBy != "ops@example.com" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	// Untouched fields keep their value.
	if updated.TriggerState != "delivered" || updated.DailyStampCap != 1 {
		t.Fatalf("expected untouched fields preserved, got %+v", updated)
	}

	after, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current after update: %v", err)
	}
	if after.UnitCost != 750 {
		t.Fatalf("expected fresh read 750, got %d", after.UnitCost)
	}
}

func TestUpdateValidation(t *testing.T) {
	db := setupProgramTestDB(t)
	seedProgram(t, db)
	svc := newProgramTestService(db)
	ctx := context.Background()

	if _, err := svc.Update(ctx, programdomain.UpdateRequest{}); !errors.Is(err, programdomain.ErrActorRequired) {
		t.Fatalf("expected actor_required, got %v", err)
	}

	badUnitCost := int64(0)
	_, err := svc.Update(ctx, programdomain.UpdateRequest{
		UnitCost: &badUnitCost,
		Actor:    "ops@example.com",
	})
	if !errors.Is(err, programdomain.ErrInvalidUnitCost) {
		t.Fatalf("expected invalid_unit_cost, got %v", err)
	}

	badInflation := 0.5
	_, err = svc.Update(ctx, programdomain.UpdateRequest{
		InflationFactor: &badInflation,
		Actor:           "ops@example.com",
	})
	if !errors.Is(err, programdomain.ErrInvalidInflation) {
		t.Fatalf("expected invalid_inflation_factor, got %v", err)
	}

	// Failed updates leave the stored config untouched.
	current, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.UnitCost != 500 || current.InflationFactor != 1.0 {
		t.Fatalf("expected original config intact, got %+v", current)
	}
}
