package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/clock"
	"github.com/loyaltyworks/tally/internal/events"
	ledgerdomain "github.com/loyaltyworks/tally/internal/ledger/domain"
	voucherdomain "github.com/loyaltyworks/tally/internal/voucher/domain"
)

const codeRetries = 3

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	LedgerRepo ledgerdomain.Repository
	Outbox     *events.Outbox
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	ledgerRepo ledgerdomain.Repository
	outbox     *events.Outbox
	clock      clock.Clock
}

func NewService(p Params) voucherdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("voucher.service"),
		genID:      p.GenID,
		ledgerRepo: p.LedgerRepo,
		outbox:     p.Outbox,
		clock:      p.Clock,
	}
}

func (s *Service) Issue(ctx context.Context, req voucherdomain.IssueRequest) (*voucherdomain.Voucher, error) {
	if req.UserID == 0 {
		return nil, voucherdomain.ErrInvalidUser
	}
	if req.RewardID == 0 {
		return nil, voucherdomain.ErrInvalidReward
	}

	var reward voucherdomain.Reward
	if err := s.db.WithContext(ctx).Where("id = ?", req.RewardID).Take(&reward).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, voucherdomain.ErrRewardNotFound
		}
		return nil, err
	}
	if !reward.Active {
		return nil, voucherdomain.ErrRewardInactive
	}

	now := s.clock.Now()
	voucher := &voucherdomain.Voucher{
		ID:         s.genID.Generate(),
		UserID:     req.UserID,
		RewardID:   reward.ID,
		RewardName: reward.Name,
		Cost:       reward.PointCost,
		Status:     voucherdomain.StatusIssued,
		IssuedAt:   now,
	}
	if reward.ValidityDays > 0 {
		expires := now.AddDate(0, 0, int(reward.ValidityDays))
		voucher.ExpiresAt = &expires
	}

	// Debit, journal entry, and voucher row are one unit: if any write
	// fails, the whole transaction rolls back and the balance is intact.
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := voucherdomain.GenerateCode()
		if err != nil {
			return nil, err
		}
		voucher.Code = code

		created := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			debited, err := s.ledgerRepo.DebitWalletIfEnough(ctx, tx, req.UserID, reward.PointCost, now)
			if err != nil {
				return err
			}
			if !debited {
				return voucherdomain.ErrInsufficientBalance
			}

			entry := &ledgerdomain.LedgerEntry{
				ID:            s.genID.Generate(),
				UserID:        req.UserID,
				Currency:      ledgerdomain.CurrencyPoints,
				Kind:          ledgerdomain.EntryKindRedeem,
				Delta:         -reward.PointCost,
				Source:        ledgerdomain.SourceInApp,
				ReferenceType: ledgerdomain.ReferenceTypeVoucher,
				ReferenceID:   voucher.ID.String(),
				Reason:        reward.Name,
				CreatedAt:     now,
			}
			if _, err := s.ledgerRepo.InsertEntry(ctx, tx, entry); err != nil {
				return err
			}

			result := tx.WithContext(ctx).Exec(
				`INSERT INTO vouchers (
					id, code, user_id, reward_id, reward_name, cost, status,
					issued_at, expires_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (code) DO NOTHING`,
				voucher.ID,
				voucher.Code,
				voucher.UserID,
				voucher.RewardID,
				voucher.RewardName,
				voucher.Cost,
				voucher.Status,
				voucher.IssuedAt,
				voucher.ExpiresAt,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return voucherdomain.ErrCodeCollision
			}

			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				UserID: req.UserID,
				Type:   events.EventVoucherIssued,
				Payload: events.VoucherIssuedPayload{
					UserID:    req.UserID.String(),
					VoucherID: voucher.ID.String(),
					Reward:    reward.Name,
				}.ToMap(),
				DedupeKey: "notify:voucher:" + voucher.ID.String(),
			}); err != nil {
				return err
			}
			created = true
			return nil
		})
		if err == voucherdomain.ErrCodeCollision {
			continue
		}
		if err != nil {
			return nil, err
		}
		if created {
			s.log.Info("voucher issued",
				zap.String("user_id", req.UserID.String()),
				zap.String("voucher_id", voucher.ID.String()),
				zap.Int64("cost", reward.PointCost),
			)
			return voucher, nil
		}
	}
	return nil, voucherdomain.ErrCodeCollision
}

func (s *Service) Redeem(ctx context.Context, req voucherdomain.RedeemRequest) (*voucherdomain.Voucher, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, voucherdomain.ErrInvalidCode
	}
	if strings.TrimSpace(req.RedeemedBy) == "" {
		return nil, voucherdomain.ErrRedeemerRequired
	}

	now := s.clock.Now()

	// One-way transition as a conditional update: only an issued,
	// unexpired voucher can move to redeemed. Anything else falls
	// through to status reporting.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET status = ?, redeemed_at = ?, redeemed_by = ?, redemption_channel = ?, redemption_note = ?
		 WHERE code = ? AND status = ?
		   AND (expires_at IS NULL OR expires_at > ?)`,
		voucherdomain.StatusRedeemed,
		now,
		strings.TrimSpace(req.RedeemedBy),
		strings.TrimSpace(req.Channel),
		strings.TrimSpace(req.Note),
		code,
		voucherdomain.StatusIssued,
		now,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return s.GetByCode(ctx, code)
	}

	voucher, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Expiry is evaluated at redemption time, not by a background sweep.
	if voucher.Status == voucherdomain.StatusIssued && voucher.ExpiresAt != nil && !voucher.ExpiresAt.After(now) {
		if err := s.db.WithContext(ctx).Exec(
			`UPDATE vouchers SET status = ? WHERE code = ? AND status = ?`,
			voucherdomain.StatusExpired,
			code,
			voucherdomain.StatusIssued,
		).Error; err != nil {
			return nil, err
		}
		return s.GetByCode(ctx, code)
	}

	return voucher, nil
}

func (s *Service) Cancel(ctx context.Context, req voucherdomain.CancelRequest) (*voucherdomain.Voucher, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, voucherdomain.ErrInvalidCode
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, voucherdomain.ErrActorRequired
	}

	if err := s.db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET status = ?, redemption_note = ?
		 WHERE code = ? AND status = ?`,
		voucherdomain.StatusCanceled,
		strings.TrimSpace(req.Reason),
		code,
		voucherdomain.StatusIssued,
	).Error; err != nil {
		return nil, err
	}
	return s.GetByCode(ctx, code)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*voucherdomain.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, voucherdomain.ErrInvalidCode
	}
	var voucher voucherdomain.Voucher
	if err := s.db.WithContext(ctx).Where("code = ?", code).Take(&voucher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, voucherdomain.ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]voucherdomain.Voucher, error) {
	if userID == 0 {
		return nil, voucherdomain.ErrInvalidUser
	}
	if limit <= 0 {
		limit = 50
	}
	var vouchers []voucherdomain.Voucher
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Limit(limit).
		Find(&vouchers).Error
	if err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (s *Service) CreateReward(ctx context.Context, req voucherdomain.CreateRewardRequest) (*voucherdomain.Reward, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.PointCost <= 0 || req.ValidityDays < 0 {
		return nil, voucherdomain.ErrInvalidReward
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = "generic"
	}

	reward := &voucherdomain.Reward{
		ID:           s.genID.Generate(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		PointCost:    req.PointCost,
		Kind:         kind,
		ValidityDays: req.ValidityDays,
		Active:       true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(reward).Error; err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *Service) ListRewards(ctx context.Context, activeOnly bool) ([]voucherdomain.Reward, error) {
	query := s.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rewards []voucherdomain.Reward
	if err := query.Order("created_at DESC").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}
