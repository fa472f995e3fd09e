package strikes

import (
	"context"
	"math"
	"strconv"
	"time"

	"scradd/internal/censor"
	"scradd/internal/config"
	"scradd/internal/metrics"
	"scradd/internal/storage"
)

type ActionKind string

const (
	ActionNone ActionKind = ""
	ActionMute ActionKind = "mute"
	ActionBan  ActionKind = "ban"
)

type Action struct {
	Kind     ActionKind
	Duration time.Duration
}

type Outcome struct {
	Strike storage.Strike
	Before float64
	Total  float64
	Action Action
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Engine struct {
	cfg   config.StrikeConfig
	store *storage.Store
	clock Clock
}

func NewEngine(cfg config.StrikeConfig, store *storage.Store) *Engine {
	if cfg.PerMute <= 0 {
		cfg.PerMute = 3
	}
	return &Engine{cfg: cfg, store: store, clock: realClock{}}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// Add records a strike and decides what crossing the new total calls for.
// An empty id is replaced with one derived from the clock.
func (e *Engine) Add(ctx context.Context, guildID, userID, id string, count float64, reason string) (Outcome, error) {
	now := e.clock.Now()
	if id == "" {
		id = strconv.FormatInt(now.UnixNano(), 36)
	}
	if count < censor.PartialStrikeCount {
		count = censor.PartialStrikeCount
	}

	strike := storage.Strike{
		ID:        id,
		GuildID:   guildID,
		UserID:    userID,
		Count:     count,
		Reason:    reason,
		CreatedAt: now,
	}
	before, after, err := e.store.AddStrike(ctx, strike, e.since(now))
	if err != nil {
		return Outcome{}, err
	}

	action := e.Decide(before, after)
	metrics.StrikesIssued.Add(count)
	if action.Kind != ActionNone {
		metrics.StrikeActions.WithLabelValues(string(action.Kind)).Inc()
	}
	return Outcome{Strike: strike, Before: before, Total: after, Action: action}, nil
}

// Decide maps the n-th PerMute multiple crossed to the n-th mute length,
// and anything past the last mute to a ban.
func (e *Engine) Decide(before, after float64) Action {
	if after <= before {
		return Action{}
	}
	from := e.steps(before)
	to := e.steps(after)
	if to <= from || to == 0 {
		return Action{}
	}
	if to > len(e.cfg.MuteHours) {
		return Action{Kind: ActionBan}
	}
	return Action{Kind: ActionMute, Duration: time.Duration(e.cfg.MuteHours[to-1]) * time.Hour}
}

func (e *Engine) steps(total float64) int {
	return int(math.Floor(total/e.cfg.PerMute + 1e-9))
}

func (e *Engine) Total(ctx context.Context, guildID, userID string) (float64, error) {
	return e.store.ActiveStrikeTotal(ctx, guildID, userID, e.since(e.clock.Now()))
}

func (e *Engine) List(ctx context.Context, guildID, userID string) ([]storage.Strike, error) {
	return e.store.ListStrikes(ctx, guildID, userID)
}

func (e *Engine) Get(ctx context.Context, guildID, id string) (storage.Strike, error) {
	return e.store.GetStrike(ctx, guildID, id)
}

func (e *Engine) Remove(ctx context.Context, guildID, id string) error {
	return e.store.RemoveStrike(ctx, guildID, id)
}

// Expired reports whether a strike no longer counts towards the total.
func (e *Engine) Expired(strike storage.Strike) bool {
	return strike.Removed || strike.CreatedAt.Unix() < e.since(e.clock.Now()).Unix()
}

func (e *Engine) since(now time.Time) time.Time {
	if e.cfg.ExpiryDays <= 0 {
		return time.Unix(0, 0)
	}
	return now.AddDate(0, 0, -e.cfg.ExpiryDays)
}
