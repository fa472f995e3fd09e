package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestDriverFor(t *testing.T) {
	cases := map[string]string{
		"postgres://user@localhost/scradd":   "pgx",
		"POSTGRESQL://user@localhost/scradd": "pgx",
		"/data/scradd.db":                    "sqlite",
		":memory:":                           "sqlite",
	}
	for dsn, want := range cases {
		if got := driverFor(dsn); got != want {
			t.Fatalf("driverFor(%q): expected %s, got %s", dsn, want, got)
		}
	}
}

func TestMigrateTwice(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := GuildSettings{Mode: "normal", AutomodEnabled: true}
	got, err := store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if got.GuildID != "g1" || !got.AutomodEnabled {
		t.Fatalf("expected defaults, got %+v", got)
	}

	settings := GuildSettings{GuildID: "g1", LogChannel: "c1", Mode: "audit", AutomodEnabled: false}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}
	settings.LogChannel = "c2"
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err = store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.LogChannel != "c2" || got.Mode != "audit" || got.AutomodEnabled {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_ = store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "WARN", Event: "automod", CreatedAt: now.Add(-48 * time.Hour)})
	_ = store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "INFO", Event: "xp_level_up", CreatedAt: now})
	_ = store.AddAuditLog(ctx, AuditLog{GuildID: "g2", Level: "INFO", Event: "xp_level_up", CreatedAt: now})

	logs, err := store.ListAuditLogs(ctx, "g1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "xp_level_up" {
		t.Fatalf("unexpected logs %+v", logs)
	}

	removed, err := store.CleanupAuditLogs(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestStrikes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	since := now.Add(-21 * 24 * time.Hour)

	old := Strike{ID: "s0", GuildID: "g1", UserID: "u1", Count: 5, CreatedAt: now.Add(-30 * 24 * time.Hour)}
	if _, _, err := store.AddStrike(ctx, old, since); err != nil {
		t.Fatalf("add old: %v", err)
	}

	before, after, err := store.AddStrike(ctx, Strike{ID: "s1", GuildID: "g1", UserID: "u1", Count: 1, Reason: "language", CreatedAt: now}, since)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if before != 0 || after != 1 {
		t.Fatalf("expected 0 -> 1, got %v -> %v", before, after)
	}

	before, after, err = store.AddStrike(ctx, Strike{ID: "s2", GuildID: "g1", UserID: "u1", Count: 0.25, CreatedAt: now}, since)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if before != 1 || after != 1.25 {
		t.Fatalf("expected 1 -> 1.25, got %v -> %v", before, after)
	}

	if _, _, err := store.AddStrike(ctx, Strike{ID: "s2", GuildID: "g1", UserID: "u1", Count: 1, CreatedAt: now}, since); !errors.Is(err, ErrStrikeExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if err := store.RemoveStrike(ctx, "g1", "s1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.RemoveStrike(ctx, "g1", "s1"); !errors.Is(err, ErrStrikeNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}

	total, err := store.ActiveStrikeTotal(ctx, "g1", "u1", since)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 0.25 {
		t.Fatalf("expected 0.25, got %v", total)
	}

	list, err := store.ListStrikes(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 strikes, got %d", len(list))
	}

	strike, err := store.GetStrike(ctx, "g1", "s1")
	if err != nil || !strike.Removed || strike.Reason != "language" {
		t.Fatalf("unexpected strike %+v (%v)", strike, err)
	}
	if _, err := store.GetStrike(ctx, "g2", "s1"); !errors.Is(err, ErrStrikeNotFound) {
		t.Fatalf("expected not found for other guild, got %v", err)
	}
}

func TestXP(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	if total, _ := store.AddXP(ctx, "g1", "u1", 40, now); total != 40 {
		t.Fatalf("expected 40, got %d", total)
	}
	if total, _ := store.AddXP(ctx, "g1", "u1", 15, now); total != 55 {
		t.Fatalf("expected 55, got %d", total)
	}
	_, _ = store.AddXP(ctx, "g1", "u2", 100, now)
	_, _ = store.AddXP(ctx, "g2", "u3", 1000, now)

	if xp, _ := store.GetXP(ctx, "g1", "missing"); xp != 0 {
		t.Fatalf("expected 0 for unknown member, got %d", xp)
	}

	top, err := store.TopXP(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u2" || top[1].XP != 55 {
		t.Fatalf("unexpected leaderboard %+v", top)
	}

	position, err := store.XPPosition(ctx, "g1", 55)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if position != 2 {
		t.Fatalf("expected position 2, got %d", position)
	}
}
