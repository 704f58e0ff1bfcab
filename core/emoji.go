package core

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Stored emojis are either a unicode literal ("⭐") or a custom emoji in
// API form ("name:id"). The API form is what discordgo's reaction endpoints
// take and what MessageReaction.Emoji.APIName() yields, so comparisons are
// plain string equality.

// EmojiFromReaction returns the stored form of a reaction's emoji.
func EmojiFromReaction(e *discordgo.Emoji) string {
	return e.APIName()
}

// IsCustomEmoji reports whether a stored emoji is a custom ("name:id") one.
func IsCustomEmoji(stored string) bool {
	return strings.Contains(stored, ":")
}

// CustomEmojiID extracts the id part of a stored custom emoji, or 0.
func CustomEmojiID(stored string) int64 {
	i := strings.LastIndexByte(stored, ':')
	if i < 0 {
		return 0
	}
	id, err := ParseSnowflake(stored[i+1:])
	if err != nil {
		return 0
	}
	return id
}

// RenderEmoji returns the display form of a stored emoji: the literal for
// unicode, the <:name:id> mention (animated-aware) for custom emojis.
func RenderEmoji(stored string, animated bool) string {
	if !IsCustomEmoji(stored) {
		return stored
	}
	if animated {
		return "<a:" + stored + ">"
	}
	return "<:" + stored + ">"
}

// EmojiEqual compares a stored emoji against a reaction emoji.
func EmojiEqual(stored string, e *discordgo.Emoji) bool {
	return stored == e.APIName()
}

// containsEmoji reports whether the stored set contains the emoji.
func containsEmoji(set []string, emoji string) bool {
	for _, s := range set {
		if s == emoji {
			return true
		}
	}
	return false
}
