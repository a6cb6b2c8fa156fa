package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/cache"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

const (
	cacheKey = "program_config"
	cacheTTL = 30 * time.Second
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cache *cache.TTLCache[string, programdomain.Config]
}

func NewService(p Params) programdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("program.service"),
		cache: cache.New[string, programdomain.Config](cacheTTL),
	}
}

func (s *Service) Current(ctx context.Context) (programdomain.Config, error) {
	if cfg, ok := s.cache.Get(cacheKey); ok {
		return cfg, nil
	}

	var cfg programdomain.Config
	err := s.db.WithContext(ctx).Order("id").Take(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return programdomain.Config{}, programdomain.ErrNotConfigured
		}
		return programdomain.Config{}, err
	}

	s.cache.Set(cacheKey, cfg, 0)
	return cfg, nil
}

func (s *Service) Update(ctx context.Context, req programdomain.UpdateRequest) (programdomain.Config, error) {
	if strings.TrimSpace(req.Actor) == "" {
		return programdomain.Config{}, programdomain.ErrActorRequired
	}

	var updated programdomain.Config
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg programdomain.Config
		if err := tx.WithContext(ctx).Raw(
			`SELECT * FROM program_configs ORDER BY id LIMIT 1`,
		).Scan(&cfg).Error; err != nil {
			return err
		}
		if cfg.ID == 0 {
			return programdomain.ErrNotConfigured
		}

		if req.UnitCost != nil {
			cfg.UnitCost = *req.UnitCost
		}
		if req.InflationFactor != nil {
			cfg.InflationFactor = *req.InflationFactor
		}
		if req.TriggerState != nil {
			cfg.TriggerState = strings.TrimSpace(*req.TriggerState)
		}
		if req.DailyStampCap != nil {
			cfg.DailyStampCap = *req.DailyStampCap
		}
		if req.StampMinAmount != nil {
			cfg.StampMinAmount = *req.StampMinAmount
		}
		if req.Enabled != nil {
			cfg.Enabled = *req.Enabled
		}

		if err := validate(cfg); err != nil {
			return err
		}

		cfg.UpdatedBy = strings.TrimSpace(req.Actor)
		cfg.UpdatedAt = time.Now().UTC()

		if err := tx.WithContext(ctx).Exec(
			`UPDATE program_configs
			 SET unit_cost = ?, inflation_factor = ?, trigger_state = ?,
			     daily_stamp_cap = ?, stamp_min_amount = ?, enabled = ?,
			     updated_by = ?, updated_at = ?
			 WHERE id = ?`,
			cfg.UnitCost,
			cfg.InflationFactor,
			cfg.TriggerState,
			cfg.DailyStampCap,
			cfg.StampMinAmount,
			cfg.Enabled,
			cfg.UpdatedBy,
			cfg.UpdatedAt,
			cfg.ID,
		).Error; err != nil {
			return err
		}

		updated = cfg
		return nil
	})
	if err != nil {
		return programdomain.Config{}, err
	}

	s.cache.Flush()
	s.log.Info("program config updated",
		zap.String("actor", updated.UpdatedBy),
		zap.Bool("enabled", updated.Enabled),
		zap.Int64("unit_cost", updated.UnitCost),
	)
	return updated, nil
}

func validate(cfg programdomain.Config) error {
	if cfg.UnitCost < 1 {
		return programdomain.ErrInvalidUnitCost
	}
	if cfg.InflationFactor < 1 {
		return programdomain.ErrInvalidInflation
	}
	if strings.TrimSpace(cfg.TriggerState) == "" {
		return programdomain.ErrInvalidTrigger
	}
	if cfg.DailyStampCap < 0 {
		return programdomain.ErrInvalidDailyCap
	}
	if cfg.StampMinAmount < 0 {
		return programdomain.ErrInvalidStampMin
	}
	return nil
}
