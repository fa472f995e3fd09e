package xp

import (
	"context"
	"fmt"
	"time"

	"scradd/internal/config"
	"scradd/internal/levels"
	"scradd/internal/metrics"
	"scradd/internal/modules/audit"
	"scradd/internal/storage"
	"scradd/internal/utils"

	"github.com/bwmarrin/discordgo"
)

type Grant struct {
	Amount    int64
	Total     int64
	OldLevel  int
	NewLevel  int
	LeveledUp bool
}

type Rank struct {
	XP       int64
	Progress levels.Progress
	Position int
}

type Module struct {
	cfg    config.XPConfig
	store  *storage.Store
	audit  *audit.Logger
	window *utils.KeyedWindow
	now    func() time.Time
}

func New(cfg config.XPConfig, store *storage.Store, auditLogger *audit.Logger) *Module {
	window := time.Duration(cfg.SpamWindowSeconds) * time.Second
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Module{
		cfg:    cfg,
		store:  store,
		audit:  auditLogger,
		window: utils.NewKeyedWindow(window),
		now:    time.Now,
	}
}

// HandleMessage grants XP for a guild message. Members posting faster than
// the spam window allows earn a shrinking share, down to nothing.
func (m *Module) HandleMessage(ctx context.Context, msg *discordgo.Message) (Grant, error) {
	if msg == nil || msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return Grant{}, nil
	}

	now := m.now()
	count := m.window.Add(msg.GuildID+":"+msg.Author.ID, now)
	amount := m.amount(count)
	if amount <= 0 {
		return Grant{}, nil
	}

	total, err := m.store.AddXP(ctx, msg.GuildID, msg.Author.ID, amount, now)
	if err != nil {
		return Grant{}, fmt.Errorf("add xp: %w", err)
	}
	grant := Grant{
		Amount:   amount,
		Total:    total,
		OldLevel: levels.LevelForXP(total - amount),
		NewLevel: levels.LevelForXP(total),
	}
	grant.LeveledUp = grant.NewLevel > grant.OldLevel

	metrics.XPGranted.Add(float64(amount))
	if grant.LeveledUp {
		metrics.LevelUps.Inc()
		if m.audit != nil {
			m.audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.Author.ID, "xp_level_up", fmt.Sprintf("level=%d xp=%d", grant.NewLevel, total))
		}
	}
	return grant, nil
}

func (m *Module) amount(count int) int64 {
	perMessage := int64(m.cfg.PerMessage)
	if m.cfg.SpamMessages <= 0 || count <= m.cfg.SpamMessages {
		return perMessage
	}
	excess := int64(count - m.cfg.SpamMessages)
	return perMessage / (excess + 1)
}

func (m *Module) Rank(ctx context.Context, guildID, userID string) (Rank, error) {
	total, err := m.store.GetXP(ctx, guildID, userID)
	if err != nil {
		return Rank{}, fmt.Errorf("get xp: %w", err)
	}
	position, err := m.store.XPPosition(ctx, guildID, total)
	if err != nil {
		return Rank{}, fmt.Errorf("xp position: %w", err)
	}
	return Rank{XP: total, Progress: levels.ProgressFor(total), Position: position}, nil
}

func (m *Module) Top(ctx context.Context, guildID string, limit int) ([]storage.XPEntry, error) {
	return m.store.TopXP(ctx, guildID, limit)
}

// Prune forgets members with no recent messages.
func (m *Module) Prune() {
	m.window.Prune(m.now())
}
