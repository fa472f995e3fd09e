package audit

import (
	"context"
	"testing"
	"time"

	"scradd/internal/storage"

	"go.uber.org/zap"
)

func TestLogPersistsAndNotifies(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := NewLogger(store, zap.NewNop())
	var notified []storage.AuditLog
	logger.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	logger.Log(context.Background(), LevelWarn, "g1", "u1", "automod_language", "tier=1")

	if len(notified) != 1 || notified[0].Event != "automod_language" {
		t.Fatalf("expected one notification, got %+v", notified)
	}
	logs, err := store.ListAuditLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Level != LevelWarn {
		t.Fatalf("expected persisted entry, got %+v", logs)
	}
}
