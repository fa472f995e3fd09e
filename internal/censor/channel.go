package censor

import "github.com/bwmarrin/discordgo"

// ChannelKind carries the facts needed to decide whether moderation applies.
type ChannelKind struct {
	Type       discordgo.ChannelType
	BotCanView bool
}

// BadWordsAllowed reports whether a channel is out of moderation reach.
func BadWordsAllowed(kind ChannelKind) bool {
	if !kind.BotCanView {
		return true
	}
	switch kind.Type {
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM, discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}
