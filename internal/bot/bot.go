package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"scradd/internal/analytics"
	"scradd/internal/censor"
	"scradd/internal/config"
	"scradd/internal/modules/audit"
	"scradd/internal/modules/automod"
	"scradd/internal/modules/xp"
	"scradd/internal/storage"
	"scradd/internal/strikes"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const aggregateWindow = 10 * time.Minute

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	strikes    *strikes.Engine
	audit      *audit.Logger
	analytics  *analytics.Service
	session    *discordgo.Session
	automod    *automod.Module
	xp         *xp.Module
	auditAgg   map[string]*auditAggregate
	auditAggMu sync.Mutex
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
	stop       chan struct{}
	stopOnce   sync.Once
}

type auditAggregate struct {
	channelID string
	messageID string
	count     int
	lastAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, strikeEngine *strikes.Engine, auditLogger *audit.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		strikes:   strikeEngine,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
		auditAgg:  make(map[string]*auditAggregate),
		limiters:  make(map[string]*rate.Limiter),
		stop:      make(chan struct{}),
	}

	b.automod = automod.New(cfg.Automod, strikeEngine, auditLogger, logger)
	b.xp = xp.New(cfg.XP, store, auditLogger)
	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startMaintenance()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() { close(b.stop) })
	if b.session != nil {
		_ = b.session.Close()
	}
}

// startMaintenance prunes expired audit logs, idle XP windows and stale
// notification aggregates once an hour.
func (b *Bot) startMaintenance() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			b.runMaintenance(context.Background(), time.Now())
			select {
			case <-b.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (b *Bot) runMaintenance(ctx context.Context, now time.Time) {
	if b.cfg.RetentionDays > 0 {
		removed, err := b.store.CleanupAuditLogs(ctx, now.AddDate(0, 0, -b.cfg.RetentionDays))
		if err != nil {
			b.logger.Warn("audit cleanup failed", zap.Error(err))
		} else if removed > 0 {
			b.logger.Info("audit cleanup", zap.Int64("removed", removed))
		}
	}
	b.xp.Prune()

	b.auditAggMu.Lock()
	for key, agg := range b.auditAgg {
		if now.Sub(agg.lastAt) > aggregateWindow {
			delete(b.auditAgg, key)
		}
	}
	b.auditAggMu.Unlock()
}

// channelKind resolves what moderation needs to know about a channel. Lookups
// that fail leave the channel treated as an ordinary visible text channel.
func (b *Bot) channelKind(session *discordgo.Session, channelID string) censor.ChannelKind {
	kind := censor.ChannelKind{Type: discordgo.ChannelTypeGuildText, BotCanView: true}
	channel, err := session.State.Channel(channelID)
	if err != nil {
		channel, err = session.Channel(channelID)
		if err != nil {
			return kind
		}
	}
	kind.Type = channel.Type
	if session.State.User == nil || channel.IsThread() {
		return kind
	}
	perms, err := session.State.UserChannelPermissions(session.State.User.ID, channelID)
	if err == nil {
		kind.BotCanView = perms&discordgo.PermissionViewChannel != 0
	}
	return kind
}

func (b *Bot) applyStrikeAction(ctx context.Context, guildID, userID string, outcome strikes.Outcome, auditOnly bool) {
	action := outcome.Action
	if action.Kind == strikes.ActionNone {
		return
	}

	level := audit.LevelWarn
	if action.Kind == strikes.ActionBan {
		level = audit.LevelCrit
	}
	detail := fmt.Sprintf("action=%s total=%.2f", action.Kind, outcome.Total)
	if action.Duration > 0 {
		detail += fmt.Sprintf(" hours=%d", int(action.Duration.Hours()))
	}
	b.audit.Log(ctx, level, guildID, userID, "strike_"+string(action.Kind), detail)

	if auditOnly {
		b.audit.Log(ctx, audit.LevelInfo, guildID, userID, "audit_mode", "sanction simulated")
		return
	}
	if !b.cfg.Actions.Enabled {
		b.audit.Log(ctx, audit.LevelInfo, guildID, userID, "enforcement_disabled", "actions disabled")
		return
	}

	switch action.Kind {
	case strikes.ActionBan:
		reason := fmt.Sprintf("Reached %.2f active strikes", outcome.Total)
		if err := b.session.GuildBanCreateWithReason(guildID, userID, reason, b.cfg.Actions.BanDeleteDays); err != nil {
			b.logger.Warn("ban failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
			b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "action_failed", "ban failed")
		}
	case strikes.ActionMute:
		until := time.Now().Add(action.Duration)
		if err := b.session.GuildMemberTimeout(guildID, userID, &until); err != nil {
			b.logger.Warn("timeout failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
			b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "action_failed", "timeout failed")
		}
	}
}

// warnMember posts a short-lived notice in the channel and DMs the member the
// censored text.
func (b *Bot) warnMember(channelID, userID string, verdict automod.Verdict, auditOnly bool) {
	notice := fmt.Sprintf("<@%s>, your message was removed (%s).", userID, strings.Join(verdict.Reasons, ", "))
	if auditOnly {
		notice = fmt.Sprintf("<@%s>, your message would have been removed (%s).", userID, strings.Join(verdict.Reasons, ", "))
	}

	if b.cfg.Notifications.ChannelWarnEnabled && channelID != "" {
		msg, err := b.session.ChannelMessageSend(channelID, notice)
		if err == nil && msg != nil && b.cfg.Automod.WarnSeconds > 0 {
			time.AfterFunc(time.Duration(b.cfg.Automod.WarnSeconds)*time.Second, func() {
				_ = b.session.ChannelMessageDelete(msg.ChannelID, msg.ID)
			})
		}
	}

	if !b.cfg.Notifications.DMWarnEnabled {
		return
	}
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return
	}
	_, _ = b.session.ChannelMessageSendEmbed(channel.ID, b.buildWarningEmbed(verdict, auditOnly))
}

func (b *Bot) buildWarningEmbed(verdict automod.Verdict, auditOnly bool) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Reason", Value: strings.Join(verdict.Reasons, ", "), Inline: true},
		{Name: "Strikes", Value: fmt.Sprintf("%.2f", verdict.Strikes), Inline: true},
	}
	if verdict.Recorded {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Active total", Value: fmt.Sprintf("%.2f", verdict.Outcome.Total), Inline: true})
	}
	if verdict.Censored != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Message", Value: truncate(verdict.Censored, 1000), Inline: false})
	}
	description := "Please keep it appropriate for everyone."
	if auditOnly {
		description = "Audit mode: nothing was removed."
	}
	return &discordgo.MessageEmbed{
		Title:       "Automod warning",
		Description: description,
		Color:       b.cfg.Notifications.EmbedColors.Warning,
		Footer:      b.embedFooter(),
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) announceLevelUp(ctx context.Context, msg *discordgo.Message, grant xp.Grant) {
	if !b.cfg.XP.AnnounceLevelUps || !grant.LeveledUp {
		return
	}
	channelID := b.guildSettings(ctx, msg.GuildID).LevelUpChannel
	if channelID == "" {
		channelID = msg.ChannelID
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Level up",
		Description: fmt.Sprintf("<@%s> reached level **%d**.", msg.Author.ID, grant.NewLevel),
		Color:       b.cfg.Notifications.EmbedColors.LevelUp,
		Footer:      b.embedFooter(),
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Debug("level up announce failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
}

func (b *Bot) buildAuditEmbed(entry storage.AuditLog, count int) *discordgo.MessageEmbed {
	userValue := "<@" + entry.UserID + ">"
	if entry.UserID == "" {
		userValue = "system"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Event", Value: entry.Event, Inline: false},
		{Name: "Level", Value: entry.Level, Inline: true},
		{Name: "User", Value: userValue, Inline: true},
	}
	if count > 1 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Count", Value: fmt.Sprintf("%d", count), Inline: true})
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Details", Value: truncate(entry.Details, 1000), Inline: false})
	}
	color := b.cfg.Notifications.EmbedColors.Action
	if entry.Level == audit.LevelCrit {
		color = b.cfg.Notifications.EmbedColors.Error
	}
	return &discordgo.MessageEmbed{
		Title:     "Moderation log",
		Color:     color,
		Footer:    b.embedFooter(),
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields:    fields,
	}
}

// notifyAudit mirrors an audit entry to the guild's log channel. Repeats of the
// same entry within aggregateWindow edit the earlier message; new messages are
// throttled per guild.
func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if entry.GuildID == "" {
		return
	}
	channelID := b.logChannel(ctx, entry.GuildID)
	if channelID == "" {
		return
	}

	key := entry.GuildID + "|" + entry.Level + "|" + entry.Event + "|" + entry.Details + "|" + entry.UserID

	b.auditAggMu.Lock()
	agg := b.auditAgg[key]
	if agg != nil && agg.channelID == channelID && time.Since(agg.lastAt) <= aggregateWindow {
		agg.count++
		agg.lastAt = time.Now()
		count := agg.count
		messageID := agg.messageID
		b.auditAggMu.Unlock()
		embed := b.buildAuditEmbed(entry, count)
		if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, embed); err == nil {
			return
		}
		b.auditAggMu.Lock()
		delete(b.auditAgg, key)
	}
	b.auditAggMu.Unlock()

	if !b.limiter(entry.GuildID).Allow() {
		b.logger.Debug("audit notification throttled", zap.String("guild_id", entry.GuildID), zap.String("event", entry.Event))
		return
	}

	msg, err := b.session.ChannelMessageSendEmbed(channelID, b.buildAuditEmbed(entry, 1))
	if err != nil || msg == nil {
		return
	}
	b.auditAggMu.Lock()
	b.auditAgg[key] = &auditAggregate{channelID: channelID, messageID: msg.ID, count: 1, lastAt: time.Now()}
	b.auditAggMu.Unlock()
}

func (b *Bot) limiter(guildID string) *rate.Limiter {
	b.limitersMu.Lock()
	defer b.limitersMu.Unlock()

	limiter, ok := b.limiters[guildID]
	if !ok {
		limiter = newNotifyLimiter(b.cfg.Notifications)
		b.limiters[guildID] = limiter
	}
	return limiter
}

func newNotifyLimiter(cfg config.NotifyConfig) *rate.Limiter {
	if cfg.AuditPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.AuditBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.AuditPerMinute/60), burst)
}

func (b *Bot) embedFooter() *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: "Scradd"}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:        guildID,
		LogChannel:     b.cfg.DefaultLogChannel,
		Mode:           b.cfg.Mode,
		AutomodEnabled: b.cfg.Automod.Enabled,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) logChannel(ctx context.Context, guildID string) string {
	channelID := b.guildSettings(ctx, guildID).LogChannel
	if channelID == "" {
		channelID = b.cfg.DefaultLogChannel
	}
	return channelID
}

func isAuditMode(settings storage.GuildSettings) bool {
	return settings.Mode == "audit"
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      b.embedFooter(),
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
