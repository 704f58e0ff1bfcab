package models

// Starboard is a destination channel plus the settings record that decides
// which messages are copied to it and how.
type Starboard struct {
	ID            int64
	GuildID       int64
	Name          string
	ChannelID     int64
	WebhookID     *int64
	PremiumLocked bool
	Settings      Settings
}

// Override is a sparse, channel-scoped settings delta layered over its parent
// starboard's settings for messages in those channels.
type Override struct {
	ID          int64
	GuildID     int64
	Name        string
	StarboardID int64
	ChannelIDs  []int64
	Delta       SettingsDelta
}

// AppliesTo reports whether the override covers the given channel.
func (o *Override) AppliesTo(channelID int64) bool {
	for _, id := range o.ChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

// ExclusiveGroup names a set of starboards among which an original may have
// at most one published post at a time.
type ExclusiveGroup struct {
	ID      int64
	GuildID int64
	Name    string
}
