package models

// AutostarChannel seeds reactions on (and optionally polices) every message
// posted in one channel.
type AutostarChannel struct {
	ID            int64
	GuildID       int64
	ChannelID     int64
	Emojis        []string
	MinChars      *int
	MaxChars      *int
	RequireImage  bool
	DeleteInvalid bool
}
