package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken      string        `yaml:"discord_token"`
	DatabasePath      string        `yaml:"database_path"`
	LogLevel          string        `yaml:"log_level"`
	DefaultLogChannel string        `yaml:"default_log_channel"`
	RetentionDays     int           `yaml:"retention_days"`
	Mode              string        `yaml:"mode"`
	Health            HealthConfig  `yaml:"health"`
	Strikes           StrikeConfig  `yaml:"strikes"`
	Automod           AutomodConfig `yaml:"automod"`
	XP                XPConfig      `yaml:"xp"`
	Actions           ActionConfig  `yaml:"actions"`
	Notifications     NotifyConfig  `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type StrikeConfig struct {
	ExpiryDays int     `yaml:"expiry_days"`
	PerMute    float64 `yaml:"per_mute"`
	MuteHours  []int   `yaml:"mute_hours"`
}

type AutomodConfig struct {
	Enabled          bool     `yaml:"enabled"`
	NicknameLeniency float64  `yaml:"nickname_leniency"`
	InviteStrikes    float64  `yaml:"invite_strikes"`
	AllowedInvites   []string `yaml:"allowed_invites"`
	WarnSeconds      int      `yaml:"warn_seconds"`
}

type XPConfig struct {
	PerMessage        int  `yaml:"per_message"`
	SpamMessages      int  `yaml:"spam_messages"`
	SpamWindowSeconds int  `yaml:"spam_window_seconds"`
	AnnounceLevelUps  bool `yaml:"announce_level_ups"`
}

type ActionConfig struct {
	Enabled       bool `yaml:"enabled"`
	BanDeleteDays int  `yaml:"ban_delete_days"`
}

type NotifyConfig struct {
	ChannelWarnEnabled bool        `yaml:"channel_warn_enabled"`
	DMWarnEnabled      bool        `yaml:"dm_warn_enabled"`
	AuditToChannel     bool        `yaml:"audit_to_channel"`
	AuditPerMinute     float64     `yaml:"audit_per_minute"`
	AuditBurst         int         `yaml:"audit_burst"`
	EmbedColors        EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	LevelUp int `yaml:"level_up"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:      "/data/scradd.db",
		LogLevel:          "info",
		DefaultLogChannel: "",
		RetentionDays:     30,
		Mode:              "normal",
		Health:            HealthConfig{Enabled: false, Addr: ":8080"},
		Strikes: StrikeConfig{
			ExpiryDays: 21,
			PerMute:    3,
			MuteHours:  []int{4, 12, 36},
		},
		Automod: AutomodConfig{
			Enabled:          true,
			NicknameLeniency: 1,
			InviteStrikes:    1,
			WarnSeconds:      10,
		},
		XP: XPConfig{
			PerMessage:        5,
			SpamMessages:      6,
			SpamWindowSeconds: 30,
			AnnounceLevelUps:  true,
		},
		Actions: ActionConfig{
			Enabled:       false,
			BanDeleteDays: 0,
		},
		Notifications: NotifyConfig{
			ChannelWarnEnabled: true,
			DMWarnEnabled:      true,
			AuditToChannel:     true,
			AuditPerMinute:     20,
			AuditBurst:         5,
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
				LevelUp: 0x22C55E,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(envString("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.Mode = normalizeMode(cfg.Mode)
	normalizeStrikes(&cfg.Strikes)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLogChannel = envString("DEFAULT_LOG_CHANNEL", cfg.DefaultLogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Mode = envString("MODE", cfg.Mode)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Strikes.ExpiryDays = envInt("STRIKE_EXPIRY_DAYS", cfg.Strikes.ExpiryDays)
	cfg.Strikes.PerMute = envFloat("STRIKES_PER_MUTE", cfg.Strikes.PerMute)
	cfg.Strikes.MuteHours = envInts("STRIKE_MUTE_HOURS", cfg.Strikes.MuteHours)
	cfg.Automod.Enabled = envBool("AUTOMOD_ENABLED", cfg.Automod.Enabled)
	cfg.Automod.NicknameLeniency = envFloat("NICKNAME_LENIENCY", cfg.Automod.NicknameLeniency)
	cfg.Automod.InviteStrikes = envFloat("INVITE_STRIKES", cfg.Automod.InviteStrikes)
	cfg.XP.PerMessage = envInt("XP_PER_MESSAGE", cfg.XP.PerMessage)
	cfg.XP.SpamMessages = envInt("XP_SPAM_MESSAGES", cfg.XP.SpamMessages)
	cfg.XP.SpamWindowSeconds = envInt("XP_SPAM_WINDOW_SECONDS", cfg.XP.SpamWindowSeconds)
	cfg.XP.AnnounceLevelUps = envBool("XP_ANNOUNCE_LEVEL_UPS", cfg.XP.AnnounceLevelUps)
	cfg.Actions.Enabled = envBool("ACTIONS_ENABLED", cfg.Actions.Enabled)
	cfg.Actions.BanDeleteDays = envInt("BAN_DELETE_DAYS", cfg.Actions.BanDeleteDays)
	cfg.Notifications.ChannelWarnEnabled = envBool("CHANNEL_WARN_ENABLED", cfg.Notifications.ChannelWarnEnabled)
	cfg.Notifications.DMWarnEnabled = envBool("DM_WARN_ENABLED", cfg.Notifications.DMWarnEnabled)
	cfg.Notifications.AuditToChannel = envBool("AUDIT_TO_CHANNEL", cfg.Notifications.AuditToChannel)
	cfg.Notifications.AuditPerMinute = envFloat("AUDIT_PER_MINUTE", cfg.Notifications.AuditPerMinute)
	cfg.Notifications.AuditBurst = envInt("AUDIT_BURST", cfg.Notifications.AuditBurst)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
	cfg.Notifications.EmbedColors.LevelUp = envInt("EMBED_COLOR_LEVEL_UP", cfg.Notifications.EmbedColors.LevelUp)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// envInts parses a comma separated list. Any bad entry keeps the fallback.
func envInts(key string, fallback []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, parsed)
	}
	return out
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeMode(value string) string {
	switch strings.ToLower(value) {
	case "audit":
		return "audit"
	default:
		return "normal"
	}
}

func normalizeStrikes(cfg *StrikeConfig) {
	if cfg.PerMute <= 0 {
		cfg.PerMute = 3
	}
	if cfg.ExpiryDays < 0 {
		cfg.ExpiryDays = 0
	}
	hours := cfg.MuteHours[:0:0]
	for _, h := range cfg.MuteHours {
		if h > 0 {
			hours = append(hours, h)
		}
	}
	cfg.MuteHours = hours
}
