package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scradd/internal/analytics"
	"scradd/internal/censor"
	"scradd/internal/modules/audit"
	"scradd/internal/modules/automod"
	"scradd/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	if b.moderate(ctx, session, msg.Message) {
		return
	}

	grant, err := b.xp.HandleMessage(ctx, msg.Message)
	if err != nil {
		b.logger.Warn("xp grant failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		return
	}
	b.announceLevelUp(ctx, msg.Message, grant)
}

// Edits are re-checked; the strike is keyed on the message ID so an edit
// never counts twice.
func (b *Bot) onMessageUpdate(session *discordgo.Session, msg *discordgo.MessageUpdate) {
	if msg.Message == nil || msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	b.moderate(context.Background(), session, msg.Message)
}

func (b *Bot) moderate(ctx context.Context, session *discordgo.Session, msg *discordgo.Message) bool {
	settings := b.guildSettings(ctx, msg.GuildID)
	if !settings.AutomodEnabled {
		return false
	}
	auditOnly := isAuditMode(settings)

	verdict := b.automod.HandleMessage(ctx, session, msg, b.channelKind(session, msg.ChannelID), auditOnly)
	if !verdict.Flagged {
		return false
	}
	if verdict.Recorded {
		b.warnMember(msg.ChannelID, msg.Author.ID, verdict, auditOnly)
		b.applyStrikeAction(ctx, msg.GuildID, msg.Author.ID, verdict.Outcome, auditOnly)
	}
	return true
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.GuildID == "" {
		return
	}
	b.checkNickname(session, event.GuildID, event.Member)
}

func (b *Bot) onGuildMemberUpdate(session *discordgo.Session, event *discordgo.GuildMemberUpdate) {
	if event.Member == nil || event.GuildID == "" {
		return
	}
	if before := event.BeforeUpdate; before != nil && automod.DisplayName(before) == automod.DisplayName(event.Member) {
		return
	}
	b.checkNickname(session, event.GuildID, event.Member)
}

func (b *Bot) checkNickname(session *discordgo.Session, guildID string, member *discordgo.Member) {
	ctx := context.Background()
	settings := b.guildSettings(ctx, guildID)
	if !settings.AutomodEnabled {
		return
	}
	auditOnly := isAuditMode(settings)
	verdict := b.automod.HandleNickname(ctx, session, guildID, member, auditOnly)
	if verdict.Recorded {
		b.applyStrikeAction(ctx, guildID, member.User.ID, verdict.Outcome, auditOnly)
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Scradd", "Commands only work inside a server.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	switch data.Name {
	case "xp":
		b.handleXPCommand(ctx, session, interaction, data.Options)
	case "strikes":
		b.handleStrikesCommand(ctx, session, interaction, data.Options)
	case "censor":
		b.handleCensorCommand(session, interaction, data.Options)
	case "logs", "levelups", "mode", "automod":
		b.handleSettingsCommand(ctx, session, interaction, data.Name, data.Options)
	case "report":
		b.handleReportCommand(ctx, session, interaction, data.Options)
	}
}

func (b *Bot) handleXPCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	colors := b.cfg.Notifications.EmbedColors

	switch sub.Name {
	case "rank":
		user := optionUser(session, sub.Options, "user")
		if user == nil {
			user = interactionUser(interaction)
		}
		if user == nil {
			return
		}
		rank, err := b.xp.Rank(ctx, interaction.GuildID, user.ID)
		if err != nil {
			b.logger.Warn("rank lookup failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("XP", "Could not load XP right now.", colors.Error, nil), true)
			return
		}
		p := rank.Progress
		fields := []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("%d", p.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d", rank.XP), Inline: true},
			{Name: "Rank", Value: fmt.Sprintf("#%d", rank.Position), Inline: true},
			{Name: "Progress", Value: fmt.Sprintf("%s %d/%d (%.0f%%)", p.Bar(12), p.XP-p.Floor, p.Next-p.Floor, p.Ratio*100), Inline: false},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("XP", "<@"+user.ID+">", colors.LevelUp, fields), false)
	case "top":
		entries, err := b.xp.Top(ctx, interaction.GuildID, 10)
		if err != nil {
			b.logger.Warn("leaderboard failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("XP leaderboard", "Could not load the leaderboard.", colors.Error, nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("XP leaderboard", formatLeaderboard(entries), colors.LevelUp, nil), false)
	}
}

func (b *Bot) handleStrikesCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	colors := b.cfg.Notifications.EmbedColors
	caller := interactionUser(interaction)
	if caller == nil {
		return
	}

	switch sub.Name {
	case "view":
		user := optionUser(session, sub.Options, "user")
		if user == nil {
			user = caller
		}
		if user.ID != caller.ID && !hasPermission(interaction, discordgo.PermissionModerateMembers) {
			b.respondEmbed(session, interaction, b.commandEmbed("Strikes", "You can only view your own strikes.", colors.Error, nil), true)
			return
		}
		list, err := b.strikes.List(ctx, interaction.GuildID, user.ID)
		if err != nil {
			b.logger.Warn("strike list failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("Strikes", "Could not load strikes right now.", colors.Error, nil), true)
			return
		}
		total, err := b.strikes.Total(ctx, interaction.GuildID, user.ID)
		if err != nil {
			b.logger.Warn("strike total failed", zap.Error(err))
		}
		description := fmt.Sprintf("<@%s> has **%.2f** active strikes.\n%s", user.ID, total, b.formatStrikes(list))
		b.respondEmbed(session, interaction, b.commandEmbed("Strikes", description, colors.Warning, nil), true)
	case "remove":
		if !hasPermission(interaction, discordgo.PermissionModerateMembers) {
			b.respondEmbed(session, interaction, b.commandEmbed("Strikes", "You need the Moderate Members permission.", colors.Error, nil), true)
			return
		}
		id := optionString(sub.Options, "id")
		strike, err := b.strikes.Get(ctx, interaction.GuildID, id)
		if err == nil {
			err = b.strikes.Remove(ctx, interaction.GuildID, id)
		}
		switch {
		case errors.Is(err, storage.ErrStrikeNotFound):
			b.respondEmbed(session, interaction, b.commandEmbed("Strikes", "No strike with ID `"+id+"`.", colors.Error, nil), true)
			return
		case err != nil:
			b.logger.Warn("strike remove failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("Strikes", "Could not remove that strike.", colors.Error, nil), true)
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, strike.UserID, "strike_removed", fmt.Sprintf("id=%s by=%s", id, caller.ID))
		b.respondEmbed(session, interaction, b.commandEmbed("Strikes", fmt.Sprintf("Removed strike `%s` from <@%s>.", id, strike.UserID), colors.Action, nil), true)
	}
}

func (b *Bot) handleCensorCommand(session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	text := optionString(options, "text")
	result, ok := censor.Censor(text, 0)
	if !ok {
		b.respondEmbed(session, interaction, b.commandEmbed("Censor", "Nothing to censor.", b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Censored", Value: truncate(result.Censored, 1000), Inline: false},
		{Name: "Strikes", Value: fmt.Sprintf("%.2f", result.Strikes), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Censor", "", b.cfg.Notifications.EmbedColors.Warning, fields), true)
}

func (b *Bot) handleSettingsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, name string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	colors := b.cfg.Notifications.EmbedColors
	if !hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.commandEmbed("Settings", "You need the Manage Server permission.", colors.Error, nil), true)
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	var message string
	switch name {
	case "logs":
		channel := optionChannel(session, options, "channel")
		if channel == nil {
			b.respondEmbed(session, interaction, b.commandEmbed("Logs", "Current log channel: "+channelMention(settings.LogChannel), colors.Action, nil), true)
			return
		}
		settings.LogChannel = channel.ID
		message = "Moderation logs go to " + channelMention(channel.ID) + "."
	case "levelups":
		channel := optionChannel(session, options, "channel")
		if channel == nil {
			settings.LevelUpChannel = ""
			message = "Level-ups are announced where they happen."
		} else {
			settings.LevelUpChannel = channel.ID
			message = "Level-ups are announced in " + channelMention(channel.ID) + "."
		}
	case "mode":
		value := optionString(options, "value")
		if value != "audit" && value != "normal" {
			b.respondEmbed(session, interaction, b.commandEmbed("Mode", "Mode must be audit or normal.", colors.Error, nil), true)
			return
		}
		settings.Mode = value
		message = "Mode set to **" + value + "**."
	case "automod":
		value := optionString(options, "value")
		settings.AutomodEnabled = value == "on"
		message = "Automod turned **" + value + "**."
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("settings update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Settings", "Could not save settings.", colors.Error, nil), true)
		return
	}
	var userID string
	if caller := interactionUser(interaction); caller != nil {
		userID = caller.ID
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, "settings_"+name, message)
	b.respondEmbed(session, interaction, b.commandEmbed("Settings", message, colors.Action, nil), true)
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	colors := b.cfg.Notifications.EmbedColors
	if !hasPermission(interaction, discordgo.PermissionModerateMembers) {
		b.respondEmbed(session, interaction, b.commandEmbed("Report", "You need the Moderate Members permission.", colors.Error, nil), true)
		return
	}
	period := optionString(options, "period")
	since := reportSince(period, time.Now())
	report, err := b.analytics.Report(ctx, interaction.GuildID, since, 5)
	if err != nil {
		b.logger.Warn("report failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Report", "Could not build the report.", colors.Error, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Moderation report ("+period+")", formatReport(report), colors.Action, nil), true)
}

func reportSince(period string, now time.Time) time.Time {
	if period == "week" {
		return now.AddDate(0, 0, -7)
	}
	return now.Add(-24 * time.Hour)
}

func formatReport(report analytics.Report) string {
	lines := []string{
		fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d", report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit]),
	}
	for i, event := range report.Events() {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("`%s` %d", event, report.ByEvent[event]))
	}
	if len(report.TopUsers) > 0 {
		lines = append(lines, "", "Most flagged:")
		for _, user := range report.TopUsers {
			lines = append(lines, fmt.Sprintf("<@%s> %d", user.UserID, user.Count))
		}
	}
	return strings.Join(lines, "\n")
}

func formatLeaderboard(entries []storage.XPEntry) string {
	if len(entries) == 0 {
		return "Nobody has earned XP yet."
	}
	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. <@%s> %d XP", i+1, entry.UserID, entry.XP))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) formatStrikes(list []storage.Strike) string {
	if len(list) == 0 {
		return "No strikes."
	}
	lines := make([]string, 0, len(list))
	for _, strike := range list {
		line := fmt.Sprintf("`%s` %.2f %s <t:%d:R>", strike.ID, strike.Count, strike.Reason, strike.CreatedAt.Unix())
		if b.strikes.Expired(strike) {
			line = "~~" + line + "~~"
		}
		lines = append(lines, line)
	}
	return truncate(strings.Join(lines, "\n"), 3500)
}

func channelMention(channelID string) string {
	if channelID == "" {
		return "not set"
	}
	return "<#" + channelID + ">"
}

func interactionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

func hasPermission(interaction *discordgo.InteractionCreate, perm int64) bool {
	if interaction.Member == nil {
		return false
	}
	perms := interaction.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&perm != 0
}

func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, option := range options {
		if option.Name == name {
			return option
		}
	}
	return nil
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if option := findOption(options, name); option != nil {
		return strings.TrimSpace(option.StringValue())
	}
	return ""
}

func optionUser(session *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.User {
	if option := findOption(options, name); option != nil {
		return option.UserValue(session)
	}
	return nil
}

func optionChannel(session *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.Channel {
	if option := findOption(options, name); option != nil {
		return option.ChannelValue(session)
	}
	return nil
}
