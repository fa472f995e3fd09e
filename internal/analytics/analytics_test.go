package analytics

import (
	"context"
	"testing"
	"time"

	"scradd/internal/storage"
)

func TestReport(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	entries := []storage.AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "automod_language", CreatedAt: now},
		{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "automod_language", CreatedAt: now},
		{GuildID: "g1", UserID: "u2", Level: "CRIT", Event: "strike_ban", CreatedAt: now},
		{GuildID: "g1", UserID: "u3", Level: "INFO", Event: "xp_level_up", CreatedAt: now},
		{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "automod_language", CreatedAt: now.Add(-72 * time.Hour)},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	report, err := New(store).Report(ctx, "g1", now.Add(-24*time.Hour), 5)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 4 || report.ByLevel["WARN"] != 2 || report.ByEvent["strike_ban"] != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.TopUsers) != 2 || report.TopUsers[0].UserID != "u1" {
		t.Fatalf("unexpected top users %+v", report.TopUsers)
	}
	if events := report.Events(); events[0] != "automod_language" {
		t.Fatalf("unexpected event order %v", events)
	}
}
