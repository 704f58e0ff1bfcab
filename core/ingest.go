package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/database"
	"starboard-bot/models"
)

// ReactionEvent is a gateway reaction payload with the ids parsed. Member is
// only populated on adds.
type ReactionEvent struct {
	GuildID   int64
	ChannelID int64
	MessageID int64
	UserID    int64
	Emoji     string
	Member    *discordgo.Member
}

// HandleReactionAdd classifies one added reaction, writes the vote rows it
// produces, and refreshes the original. Reactions whose emoji matches no
// config are dropped without touching the store.
func (c *Context) HandleReactionAdd(ev *ReactionEvent) error {
	configs, err := c.ResolveAll(ev.GuildID, ev.ChannelID)
	if err != nil {
		return err
	}
	if !emojiMatchesAny(configs, ev.Emoji) {
		return nil
	}

	msg, err := c.Cache.FogMessage(c.API, ev.ChannelID, ev.MessageID)
	if err != nil {
		return err
	}
	original, err := database.GetOriginal(c.DB, ev.MessageID)
	if errors.Is(err, database.ErrNotFound) {
		if msg == nil {
			// First sighting and the message is already gone.
			return nil
		}
		original, err = c.ensureOriginal(ev.GuildID, ev.ChannelID, ev.MessageID, msg)
	}
	if err != nil {
		return err
	}

	voterRoles, voterIsBot := rolesFromMember(ev.Member)
	if ev.Member == nil {
		voterRoles, voterIsBot, err = c.memberContext(ev.GuildID, ev.UserID)
		if err != nil {
			return err
		}
	}
	authorRoles, authorIsBot, err := c.memberContext(ev.GuildID, original.AuthorID)
	if err != nil {
		return err
	}
	chain, err := c.Cache.QualifiedChannelIDs(c.API, ev.GuildID, ev.ChannelID)
	if err != nil {
		return err
	}

	cls, err := c.ClassifyVote(&VoteEvent{
		Emoji:        ev.Emoji,
		Original:     original,
		Message:      msg,
		Configs:      configs,
		VoterID:      ev.UserID,
		VoterRoles:   voterRoles,
		VoterIsBot:   voterIsBot,
		AuthorRoles:  authorRoles,
		AuthorIsBot:  authorIsBot,
		ChannelChain: chain,
		Now:          time.Now(),
	})
	if err != nil {
		return err
	}

	switch cls.Status {
	case VoteIgnore:
		return nil
	case VoteRemove:
		err := c.API.MessageReactionRemove(
			FormatSnowflake(ev.ChannelID), FormatSnowflake(ev.MessageID),
			ev.Emoji, FormatSnowflake(ev.UserID))
		if err != nil && !IsNotFound(err) && !IsForbidden(err) {
			c.Log.Debug("stripping invalid reaction failed",
				zap.Int64("message", ev.MessageID), zap.Error(err))
		}
		return nil
	}

	for _, rc := range cls.Upvote {
		if err := c.writeVote(original, rc.Starboard.ID, ev.UserID, false); err != nil {
			return err
		}
	}
	for _, rc := range cls.Downvote {
		if err := c.writeVote(original, rc.Starboard.ID, ev.UserID, true); err != nil {
			return err
		}
	}
	return c.Refresh(ev.MessageID, false)
}

// HandleReactionRemove deletes the vote rows a removed reaction backed and
// refreshes the original.
func (c *Context) HandleReactionRemove(ev *ReactionEvent) error {
	original, err := database.GetOriginal(c.DB, ev.MessageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if original.Frozen {
		return nil
	}

	configs, err := c.ResolveAll(ev.GuildID, ev.ChannelID)
	if err != nil {
		return err
	}
	touched := false
	for _, rc := range configs {
		if !containsEmoji(rc.Settings.UpvoteEmojis, ev.Emoji) &&
			!containsEmoji(rc.Settings.DownvoteEmojis, ev.Emoji) {
			continue
		}
		if err := database.DeleteVote(c.DB, ev.MessageID, rc.Starboard.ID, ev.UserID); err != nil {
			return err
		}
		touched = true
	}
	if !touched {
		return nil
	}
	return c.Refresh(ev.MessageID, false)
}

// HandleReactionRemoveAll clears every vote after a moderator wipes all
// reactions from a message.
func (c *Context) HandleReactionRemoveAll(guildID, channelID, messageID int64) error {
	original, err := database.GetOriginal(c.DB, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if original.Frozen {
		return nil
	}
	if err := database.DeleteAllVotes(c.DB, messageID); err != nil {
		return err
	}
	return c.Refresh(messageID, false)
}

// HandleReactionRemoveEmoji clears the votes of the starboards whose emoji
// sets contain the wiped emoji.
func (c *Context) HandleReactionRemoveEmoji(guildID, channelID, messageID int64, emoji string) error {
	original, err := database.GetOriginal(c.DB, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if original.Frozen {
		return nil
	}

	configs, err := c.ResolveAll(guildID, channelID)
	if err != nil {
		return err
	}
	touched := false
	for _, rc := range configs {
		if !containsEmoji(rc.Settings.UpvoteEmojis, emoji) &&
			!containsEmoji(rc.Settings.DownvoteEmojis, emoji) {
			continue
		}
		if err := database.DeleteVotesForStarboard(c.DB, messageID, rc.Starboard.ID); err != nil {
			return err
		}
		touched = true
	}
	if !touched {
		return nil
	}
	return c.Refresh(messageID, false)
}

// HandleMessageEdit re-renders destination posts when the starboard links
// edits. Only configs with link_edits enabled force a full re-render; the
// others are untouched until the next point change.
func (c *Context) HandleMessageEdit(guildID, channelID, messageID int64) error {
	original, err := database.GetOriginal(c.DB, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	c.Cache.Messages.Delete(messageID)

	configs, err := c.ResolveAll(guildID, channelID)
	if err != nil {
		return err
	}
	for _, rc := range configs {
		if rc.Settings.LinkEdits {
			return c.Refresh(original.MessageID, true)
		}
	}
	return nil
}

// HandleMessageDelete reacts to a message deletion, which is either an
// original going away (apply each config's on_delete policy) or a
// destination copy vanishing (reset the post row so the next refresh may
// re-send).
func (c *Context) HandleMessageDelete(guildID, channelID, messageID int64) error {
	// Our own deletions carry a tombstone and are not external events.
	if _, _, hit := c.Cache.AutoDeleted.Get(messageID); hit {
		return nil
	}
	c.Cache.Messages.Delete(messageID)

	if post, err := database.GetPostByPostID(c.DB, messageID); err == nil {
		return c.destinationDeleted(post)
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	original, err := database.GetOriginal(c.DB, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.originalDeleted(original)
}

// HandleMessageBulkDelete folds a bulk-delete into per-message handling.
func (c *Context) HandleMessageBulkDelete(guildID, channelID int64, messageIDs []int64) error {
	for _, id := range messageIDs {
		if err := c.HandleMessageDelete(guildID, channelID, id); err != nil {
			c.Log.Warn("bulk delete handling failed",
				zap.Int64("message", id), zap.Error(err))
		}
	}
	return nil
}

// destinationDeleted resets a published-post row whose copy was deleted
// externally and applies the starboard's on_delete policy to the original.
func (c *Context) destinationDeleted(post *models.PublishedPost) error {
	if err := database.DeletePost(c.DB, post.MessageID, post.StarboardID); err != nil {
		return err
	}
	sb, err := database.GetStarboard(c.DB, post.StarboardID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}
	switch sb.Settings.OnDelete {
	case models.OnDeleteIgnore:
		return nil
	case models.OnDeleteTrash:
		reason := "destination post was deleted"
		if err := database.SetTrashed(c.DB, post.MessageID, true, &reason); err != nil {
			return err
		}
	case models.OnDeleteFreeze:
		if err := database.SetFrozen(c.DB, post.MessageID, true); err != nil {
			return err
		}
	}
	return c.Refresh(post.MessageID, true)
}

// originalDeleted refreshes so each config's link_deletes takes effect.
func (c *Context) originalDeleted(original *models.Original) error {
	return c.Refresh(original.MessageID, true)
}

func rolesFromMember(m *discordgo.Member) ([]int64, bool) {
	if m == nil {
		return nil, false
	}
	var roles []int64
	for _, r := range m.Roles {
		id, err := ParseSnowflake(r)
		if err != nil {
			continue
		}
		roles = append(roles, id)
	}
	isBot := false
	if m.User != nil {
		isBot = m.User.Bot
	}
	return roles, isBot
}

// PremiumExpirySweep locks entities past the free ceiling in every guild
// whose premium ran out. Run from the scheduler.
func (c *Context) PremiumExpirySweep() error {
	guilds, err := database.ExpiredPremiumGuilds(c.DB, time.Now())
	if err != nil {
		return fmt.Errorf("listing expired premium guilds: %w", err)
	}
	for _, g := range guilds {
		if err := database.LockExcessEntities(c.DB, g); err != nil {
			c.Log.Warn("premium expiry lock failed", zap.Int64("guild", g), zap.Error(err))
			continue
		}
		c.Log.Info("premium expired, excess entities locked", zap.Int64("guild", g))
	}
	return nil
}
