package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type captureSink struct {
	delivered []StoredEvent
}

func (s *captureSink) Deliver(_ context.Context, event StoredEvent) error {
	s.delivered = append(s.delivered, event)
	return nil
}

func setupEventsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS notification_events (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create notification_events: %v", err)
	}
	return db
}

func TestOutboxDedupesByKey(t *testing.T) {
	db := setupEventsTestDB(t)
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	outbox := NewOutbox(db, node)
	ctx := context.Background()

	event := Event{
		UserID:    42,
		Type:      EventBalanceChanged,
		Payload:   map[string]any{"delta": 10},
		DedupeKey: "notify:points:pos:purchase:sale-1:earn",
	}
	if err := outbox.Publish(ctx, event); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := outbox.Publish(ctx, event); err != nil {
		t.Fatalf("replayed publish: %v", err)
	}

	var count int64
	if err := db.Table("notification_events").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single event after replay, got %d", count)
	}
}

func TestDispatcherDrainsAndMarksPublished(t *testing.T) {
	db := setupEventsTestDB(t)
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	outbox := NewOutbox(db, node)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := outbox.Publish(ctx, Event{
			UserID:    42,
			Type:      EventStampEarned,
			DedupeKey: fmt.Sprintf("notify:stamp:%d", i),
		}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	sink := &captureSink{}
	dispatcher := NewDispatcher(DispatcherParams{
		DB:     db,
		Log:    zap.NewNop(),
		Sink:   sink,
		Config: DispatcherConfig{PollInterval: time.Minute, BatchSize: 10},
	})

	delivered, err := dispatcher.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if delivered != 3 || len(sink.delivered) != 3 {
		t.Fatalf("expected 3 deliveries, got %d / %d", delivered, len(sink.delivered))
	}

	// A second pass finds nothing: everything is marked published.
	again, err := dispatcher.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected empty second pass, got %d", again)
	}
}
