package utils

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// NewLogger returns a zap logger configured for structured production logging.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

// Notifier mirrors important events into the admin channel, when one is
// configured via bot.adminChannelId.
type Notifier struct {
	session   *discordgo.Session
	channelID string
	log       *zap.Logger
}

// NewNotifier builds a Notifier. An empty admin channel id disables channel
// delivery; messages still go to the logger.
func NewNotifier(s *discordgo.Session, log *zap.Logger) *Notifier {
	channelID := viper.GetString("bot.adminChannelId")
	if channelID == "" {
		log.Info("bot.adminChannelId is not set, admin channel notifications disabled")
	}
	return &Notifier{session: s, channelID: channelID, log: log}
}

// Notify sends one event to the admin channel.
func (n *Notifier) Notify(level, module, operation, details string) {
	n.log.Info("admin notification",
		zap.String("level", level),
		zap.String("module", module),
		zap.String("operation", operation),
		zap.String("details", details))
	if n.session == nil || n.channelID == "" {
		return
	}

	var color int
	switch level {
	case "WARN":
		color = ColorWarn
	case "ERROR":
		color = ColorError
	default:
		color = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     "Log Level: " + level,
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Operation", Value: operation, Inline: true},
			{Name: "Details", Value: details},
		},
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		n.log.Warn("sending admin notification failed", zap.Error(err))
	}
}

// Info sends an informational notification.
func (n *Notifier) Info(module, operation, details string) {
	n.Notify("INFO", module, operation, details)
}

// Warn sends a warning notification.
func (n *Notifier) Warn(module, operation, details string) {
	n.Notify("WARN", module, operation, details)
}

// Error sends an error notification.
func (n *Notifier) Error(module, operation, details string) {
	n.Notify("ERROR", module, operation, details)
}
