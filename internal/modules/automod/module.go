package automod

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"scradd/internal/censor"
	"scradd/internal/config"
	"scradd/internal/metrics"
	"scradd/internal/modules/audit"
	"scradd/internal/storage"
	"scradd/internal/strikes"
	"scradd/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	ReasonLanguage = "language"
	ReasonInvite   = "invite"
	ReasonLink     = "link"
	ReasonNickname = "nickname"
)

// Hosts whose names are never censored.
var trustedHosts = []string{"discord.com", "discordapp.com", "discord.gg", "discordapp.net"}

type Verdict struct {
	Flagged  bool
	Reasons  []string
	Censored string
	Words    [][]string
	Strikes  float64
	Outcome  strikes.Outcome
	// Recorded is false when the strike already existed, as with an edited message.
	Recorded bool
}

type Module struct {
	cfg     config.AutomodConfig
	filter  *censor.Filter
	strikes *strikes.Engine
	audit   *audit.Logger
	logger  *zap.Logger
}

func New(cfg config.AutomodConfig, strikeEngine *strikes.Engine, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{cfg: cfg, filter: censor.Default(), strikes: strikeEngine, audit: auditLogger, logger: logger}
}

func (m *Module) WithFilter(filter *censor.Filter) {
	m.filter = filter
}

// Check classifies content without side effects.
func (m *Module) Check(content string) Verdict {
	var verdict Verdict
	if content == "" {
		return verdict
	}

	if result, ok := m.filter.Censor(content, 0); ok {
		verdict.Reasons = append(verdict.Reasons, ReasonLanguage)
		verdict.Censored = result.Censored
		verdict.Words = result.Words
		verdict.Strikes += result.Strikes
	} else if strikeCount, ok := m.checkLinks(content); ok {
		verdict.Reasons = append(verdict.Reasons, ReasonLink)
		verdict.Strikes += strikeCount
	}

	if m.hasForeignInvite(content) {
		verdict.Reasons = append(verdict.Reasons, ReasonInvite)
		verdict.Strikes += m.cfg.InviteStrikes
	}

	verdict.Flagged = len(verdict.Reasons) > 0
	return verdict
}

func (m *Module) HandleMessage(ctx context.Context, session *discordgo.Session, msg *discordgo.Message, kind censor.ChannelKind, auditOnly bool) Verdict {
	if msg == nil || msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return Verdict{}
	}
	if censor.BadWordsAllowed(kind) {
		return Verdict{}
	}

	verdict := m.Check(msg.Content)
	if !verdict.Flagged {
		return verdict
	}

	for i, words := range verdict.Words {
		if len(words) > 0 {
			metrics.CensorMatches.WithLabelValues(strconv.Itoa(i)).Add(float64(len(words)))
		}
	}
	for _, reason := range verdict.Reasons {
		metrics.MessagesModerated.WithLabelValues(reason).Inc()
	}

	reason := strings.Join(verdict.Reasons, ",")
	detail := fmt.Sprintf("reason=%s strikes=%.2f channel=%s", reason, verdict.Strikes, msg.ChannelID)
	m.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.Author.ID, "automod_"+verdict.Reasons[0], detail)
	if !auditOnly {
		if err := session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
			m.logger.Warn("automod delete failed", zap.String("guild_id", msg.GuildID), zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	m.record(ctx, msg.GuildID, msg.Author.ID, msg.ID, reason, &verdict)
	return verdict
}

// HandleNickname censors a member's display name and, outside audit mode,
// replaces their nickname with the censored rendering.
func (m *Module) HandleNickname(ctx context.Context, session *discordgo.Session, guildID string, member *discordgo.Member, auditOnly bool) Verdict {
	if member == nil || member.User == nil || member.User.Bot {
		return Verdict{}
	}
	name := DisplayName(member)
	result, ok := m.filter.Censor(name, m.cfg.NicknameLeniency)
	if !ok {
		return Verdict{}
	}
	verdict := Verdict{
		Flagged:  true,
		Reasons:  []string{ReasonNickname},
		Censored: result.Censored,
		Words:    result.Words,
		Strikes:  result.Strikes,
	}
	metrics.MessagesModerated.WithLabelValues(ReasonNickname).Inc()

	m.audit.Log(ctx, audit.LevelWarn, guildID, member.User.ID, "automod_nickname", fmt.Sprintf("set nickname to %q", result.Censored))
	if !auditOnly {
		if err := session.GuildMemberNickname(guildID, member.User.ID, result.Censored); err != nil {
			m.logger.Warn("nickname update failed", zap.String("guild_id", guildID), zap.String("user_id", member.User.ID), zap.Error(err))
		}
	}

	m.record(ctx, guildID, member.User.ID, nicknameStrikeID(guildID, member.User.ID, name), ReasonNickname, &verdict)
	return verdict
}

// DisplayName is the name other members see: the nickname, or the username
// when no nickname is set.
func DisplayName(member *discordgo.Member) string {
	if member == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}

// One strike per offending name, however often the member is re-checked.
func nicknameStrikeID(guildID, userID, name string) string {
	return "nick:" + guildID + ":" + userID + ":" + name
}

func (m *Module) record(ctx context.Context, guildID, userID, id, reason string, verdict *Verdict) {
	if m.strikes == nil {
		return
	}
	outcome, err := m.strikes.Add(ctx, guildID, userID, id, verdict.Strikes, reason)
	switch {
	case errors.Is(err, storage.ErrStrikeExists):
		return
	case err != nil:
		m.logger.Error("strike record failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return
	}
	verdict.Outcome = outcome
	verdict.Recorded = true
}

func (m *Module) checkLinks(content string) (float64, bool) {
	total := 0.0
	flagged := false
	for _, raw := range utils.ExtractLinks(content) {
		link, err := utils.ParseLink(raw)
		if err != nil || utils.HostMatches(link.Host, trustedHosts) {
			continue
		}
		if result, ok := m.filter.Censor(link.Host, 0); ok {
			total += result.Strikes
			flagged = true
		}
	}
	return total, flagged
}

func (m *Module) hasForeignInvite(content string) bool {
	for _, code := range utils.InviteCodes(censor.Normalize(content)) {
		allowed := false
		for _, ok := range m.cfg.AllowedInvites {
			if strings.EqualFold(ok, code) {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}
	return false
}
