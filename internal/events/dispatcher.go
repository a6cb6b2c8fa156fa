package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DispatcherConfig controls the outbox drain loop.
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// Sink delivers one drained event. The default sink only logs; a push
// gateway implements this to reach user devices.
type Sink interface {
	Deliver(ctx context.Context, event StoredEvent) error
}

// StoredEvent is one outbox row ready for delivery.
type StoredEvent struct {
	ID        int64             `gorm:"column:id"`
	UserID    int64             `gorm:"column:user_id"`
	EventType string            `gorm:"column:event_type"`
	Payload   datatypes.JSONMap `gorm:"column:payload"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

type logSink struct {
	log *zap.Logger
}

func (s logSink) Deliver(_ context.Context, event StoredEvent) error {
	s.log.Info("notification",
		zap.Int64("user_id", event.UserID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

// NewLogSink returns a sink that records deliveries in the service log.
func NewLogSink(log *zap.Logger) Sink {
	return logSink{log: log.Named("events.sink")}
}

type DispatcherParams struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Sink   Sink
	Config DispatcherConfig `optional:"true"`
}

// Dispatcher drains unpublished outbox rows and hands them to the sink.
// Rows are marked published in the same transaction that reads them, so a
// crash between read and delivery re-delivers rather than drops.
type Dispatcher struct {
	db   *gorm.DB
	log  *zap.Logger
	sink Sink
	cfg  DispatcherConfig
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		db:   p.DB,
		log:  p.Log.Named("events.dispatcher"),
		sink: p.Sink,
		cfg:  p.Config.withDefaults(),
	}
}

func (d *Dispatcher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil {
			d.log.Warn("outbox drain failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce drains up to one batch and returns how many rows it delivered.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	if d.db == nil || d.sink == nil {
		return 0, errors.New("dispatcher_unavailable")
	}

	delivered := 0
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []StoredEvent
		if err := tx.WithContext(ctx).Raw(
			`SELECT id, user_id, event_type, payload, created_at
			 FROM notification_events
			 WHERE published = false
			 ORDER BY id
			 LIMIT ?`,
			d.cfg.BatchSize,
		).Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		for _, row := range rows {
			if err := d.sink.Deliver(ctx, row); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE notification_events SET published = true WHERE id = ?`,
				row.ID,
			).Error; err != nil {
				return err
			}
			delivered++
		}
		return nil
	})
	return delivered, err
}
