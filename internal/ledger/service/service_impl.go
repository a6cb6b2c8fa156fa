package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/clock"
	"github.com/loyaltyworks/tally/internal/events"
	"github.com/loyaltyworks/tally/internal/ledger/domain"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Outbox     *events.Outbox
	ProgramSvc programdomain.Service
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	outbox     *events.Outbox
	programSvc programdomain.Service
	clock      clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		outbox:     p.Outbox,
		programSvc: p.ProgramSvc,
		clock:      p.Clock,
	}
}

func (s *Service) ApplyPoints(ctx context.Context, req domain.AccrualRequest) (domain.ApplyResult, error) {
	if err := validateAccrual(req); err != nil {
		return domain.ApplyResult{}, err
	}

	cfg, err := s.programSvc.Current(ctx)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if !cfg.Enabled {
		return domain.NoOp(domain.ReasonDisabled), nil
	}

	delta := domain.ComputePoints(req.Amount, cfg.UnitCost, cfg.InflationFactor)
	if delta <= 0 {
		return domain.NoOp(domain.ReasonNoRewardDue), nil
	}

	now := s.clock.Now()
	amount := req.Amount
	entry := &domain.LedgerEntry{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		Currency:      domain.CurrencyPoints,
		Kind:          domain.EntryKindEarn,
		Delta:         delta,
		Source:        req.Source,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		AmountBasis:   &amount,
		CreatedAt:     now,
	}

	var result domain.ApplyResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			result = domain.NoOp(domain.ReasonAlreadyApplied)
			return nil
		}
		if err := s.repo.IncrementWallet(ctx, tx, req.UserID, delta, now); err != nil {
			return err
		}
		if err := s.notifyBalanceTx(ctx, tx, entry, ""); err != nil {
			return err
		}
		result = domain.ApplyResult{Applied: true, EntryID: entry.ID, Delta: delta}
		return nil
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}

	if result.Applied {
		s.log.Info("points applied",
			zap.String("user_id", req.UserID.String()),
			zap.String("reference_id", req.ReferenceID),
			zap.Int64("delta", delta),
		)
	}
	return result, nil
}

func (s *Service) ApplyStamp(ctx context.Context, req domain.AccrualRequest) (domain.ApplyResult, error) {
	if err := validateAccrual(req); err != nil {
		return domain.ApplyResult{}, err
	}

	cfg, err := s.programSvc.Current(ctx)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if !cfg.Enabled || cfg.DailyStampCap <= 0 {
		return domain.NoOp(domain.ReasonDisabled), nil
	}
	if req.Amount < cfg.StampMinAmount {
		return domain.NoOp(domain.ReasonBelowMinimum), nil
	}

	now := s.clock.Now()
	amount := req.Amount
	entry := &domain.LedgerEntry{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		Currency:      domain.CurrencyStamps,
		Kind:          domain.EntryKindEarn,
		Delta:         1,
		Source:        req.Source,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		AmountBasis:   &amount,
		CreatedAt:     now,
	}
	calendarDay := now.UTC().Format(domain.CalendarDayFormat)

	var result domain.ApplyResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			result = domain.NoOp(domain.ReasonAlreadyApplied)
			return nil
		}

		// The register's uniqueness constraint is the cap. Losing the
		// claim rolls back the whole transaction, journal row included.
		claimed, err := s.repo.InsertDailyStamp(ctx, tx, req.UserID, calendarDay, entry.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrDailyCapReached
		}

		if err := s.repo.IncrementStamps(ctx, tx, req.UserID, 1, 1, now); err != nil {
			return err
		}
		if err := s.notifyStampTx(ctx, tx, entry); err != nil {
			return err
		}
		result = domain.ApplyResult{Applied: true, EntryID: entry.ID, Delta: 1}
		return nil
	})
	if errors.Is(err, domain.ErrDailyCapReached) {
		return domain.NoOp(domain.ReasonDailyLimit), nil
	}
	if err != nil {
		return domain.ApplyResult{}, err
	}
	return result, nil
}

func (s *Service) Revoke(ctx context.Context, req domain.RevokeRequest) (domain.ApplyResult, error) {
	if req.Currency != domain.CurrencyPoints && req.Currency != domain.CurrencyStamps {
		return domain.ApplyResult{}, domain.ErrInvalidCurrency
	}
	if strings.TrimSpace(req.Source) == "" ||
		strings.TrimSpace(req.ReferenceType) == "" ||
		strings.TrimSpace(req.ReferenceID) == "" {
		return domain.ApplyResult{}, domain.ErrInvalidReference
	}

	now := s.clock.Now()
	var result domain.ApplyResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		earn, err := s.repo.FindEntry(ctx, tx, req.Currency, req.Source, req.ReferenceType, req.ReferenceID, domain.EntryKindEarn)
		if err != nil {
			return err
		}
		if earn == nil {
			result = domain.NoOp(domain.ReasonNoEarnFound)
			return nil
		}

		// The reversal amount comes from the original entry, never from a
		// recomputation, so a revoke can never exceed the original grant.
		revoke := &domain.LedgerEntry{
			ID:            s.genID.Generate(),
			UserID:        earn.UserID,
			Currency:      req.Currency,
			Kind:          domain.EntryKindRevoke,
			Delta:         -earn.Delta,
			Source:        req.Source,
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			AmountBasis:   earn.AmountBasis,
			Reason:        req.Reason,
			CreatedAt:     now,
		}
		inserted, err := s.repo.InsertEntry(ctx, tx, revoke)
		if err != nil {
			return err
		}
		if !inserted {
			result = domain.NoOp(domain.ReasonAlreadyApplied)
			return nil
		}

		switch req.Currency {
		case domain.CurrencyPoints:
			if err := s.repo.IncrementWallet(ctx, tx, earn.UserID, revoke.Delta, now); err != nil {
				return err
			}
		case domain.CurrencyStamps:
			if err := s.repo.IncrementStamps(ctx, tx, earn.UserID, revoke.Delta, 0, now); err != nil {
				return err
			}
			if err := s.repo.DeleteDailyStampByEntry(ctx, tx, earn.ID); err != nil {
				return err
			}
		}

		if err := s.notifyBalanceTx(ctx, tx, revoke, req.Reason); err != nil {
			return err
		}
		result = domain.ApplyResult{Applied: true, EntryID: revoke.ID, Delta: revoke.Delta}
		return nil
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}

	if result.Applied {
		s.log.Info("accrual revoked",
			zap.String("currency", string(req.Currency)),
			zap.String("reference_id", req.ReferenceID),
			zap.String("reason", req.Reason),
		)
	}
	return result, nil
}

func (s *Service) ManualAdjust(ctx context.Context, req domain.ManualAdjustRequest) (domain.ApplyResult, error) {
	if req.UserID == 0 {
		return domain.ApplyResult{}, domain.ErrInvalidUser
	}
	if req.Currency != domain.CurrencyPoints && req.Currency != domain.CurrencyStamps {
		return domain.ApplyResult{}, domain.ErrInvalidCurrency
	}
	if req.Delta == 0 {
		return domain.ApplyResult{}, domain.ErrInvalidDelta
	}
	if strings.TrimSpace(req.Actor) == "" {
		return domain.ApplyResult{}, domain.ErrActorRequired
	}
	if strings.TrimSpace(req.Reason) == "" {
		return domain.ApplyResult{}, domain.ErrReasonRequired
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		// Without a caller token each submission is its own event.
		token = s.genID.Generate().String()
	}

	now := s.clock.Now()
	entry := &domain.LedgerEntry{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		Currency:      req.Currency,
		Kind:          domain.EntryKindManual,
		Delta:         req.Delta,
		Source:        domain.SourceManual,
		ReferenceType: domain.ReferenceTypeManualToken,
		ReferenceID:   token,
		Reason:        strings.TrimSpace(req.Reason),
		Metadata: datatypes.JSONMap{
			"actor":  strings.TrimSpace(req.Actor),
			"reason": strings.TrimSpace(req.Reason),
		},
		CreatedAt: now,
	}

	var result domain.ApplyResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			result = domain.NoOp(domain.ReasonAlreadyApplied)
			return nil
		}

		switch req.Currency {
		case domain.CurrencyPoints:
			if err := s.repo.IncrementWallet(ctx, tx, req.UserID, req.Delta, now); err != nil {
				return err
			}
		case domain.CurrencyStamps:
			lifetime := req.Delta
			if lifetime < 0 {
				lifetime = 0
			}
			if err := s.repo.IncrementStamps(ctx, tx, req.UserID, req.Delta, lifetime, now); err != nil {
				return err
			}
		}

		if err := s.notifyBalanceTx(ctx, tx, entry, entry.Reason); err != nil {
			return err
		}
		result = domain.ApplyResult{Applied: true, EntryID: entry.ID, Delta: req.Delta}
		return nil
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}
	return result, nil
}

func (s *Service) Balance(ctx context.Context, userID snowflake.ID) (domain.WalletView, error) {
	if userID == 0 {
		return domain.WalletView{}, domain.ErrInvalidUser
	}
	wallet, err := s.repo.GetWallet(ctx, s.db, userID)
	if err != nil {
		return domain.WalletView{}, err
	}
	card, err := s.repo.GetStampCard(ctx, s.db, userID)
	if err != nil {
		return domain.WalletView{}, err
	}
	return domain.WalletView{
		UserID:        userID,
		PointsBalance: wallet.Balance,
		StampCount:    card.CurrentCount,
		LifetimeCount: card.LifetimeCount,
	}, nil
}

func (s *Service) ListEntries(ctx context.Context, req domain.ListEntriesRequest) ([]domain.LedgerEntry, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.ListEntries(ctx, s.db, req)
}

// notifyBalanceTx enqueues a balance-change notification inside the accrual
// transaction. The dedupe key mirrors the entry idempotency key, so a
// replayed event can never notify twice.
func (s *Service) notifyBalanceTx(ctx context.Context, tx *gorm.DB, entry *domain.LedgerEntry, reason string) error {
	return s.outbox.PublishTx(ctx, tx, events.Event{
		UserID: entry.UserID,
		Type:   events.EventBalanceChanged,
		Payload: events.BalanceChangedPayload{
			UserID:        entry.UserID.String(),
			Delta:         entry.Delta,
			LedgerEntryID: entry.ID.String(),
			Reason:        reason,
		}.ToMap(),
		DedupeKey: entryDedupeKey(entry),
	})
}

func (s *Service) notifyStampTx(ctx context.Context, tx *gorm.DB, entry *domain.LedgerEntry) error {
	return s.outbox.PublishTx(ctx, tx, events.Event{
		UserID: entry.UserID,
		Type:   events.EventStampEarned,
		Payload: events.BalanceChangedPayload{
			UserID:        entry.UserID.String(),
			Delta:         entry.Delta,
			LedgerEntryID: entry.ID.String(),
		}.ToMap(),
		DedupeKey: entryDedupeKey(entry),
	})
}

func entryDedupeKey(entry *domain.LedgerEntry) string {
	return fmt.Sprintf("notify:%s:%s:%s:%s:%s",
		entry.Currency, entry.Source, entry.ReferenceType, entry.ReferenceID, entry.Kind)
}

func validateAccrual(req domain.AccrualRequest) error {
	if req.UserID == 0 {
		return domain.ErrInvalidUser
	}
	if strings.TrimSpace(req.Source) == "" ||
		strings.TrimSpace(req.ReferenceType) == "" ||
		strings.TrimSpace(req.ReferenceID) == "" {
		return domain.ErrInvalidReference
	}
	return nil
}
