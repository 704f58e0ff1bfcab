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

const reactionPageSize = 100

// ErrRecountBusy is returned when a recount for the message is already
// running.
var ErrRecountBusy = errors.New("a recount for this message is already running")

// ErrMessageFrozen is returned when an operation would move a frozen vote
// total.
var ErrMessageFrozen = errors.New("votes on this message are frozen")

// CooldownError reports a denied rate-limited operation and how long until
// it would be allowed again.
type CooldownError struct {
	Retry time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown, retry in %s", e.Retry.Round(time.Second))
}

// Recount re-enumerates every reaction on one message, rebuilds the vote
// rows from scratch, and runs one forced refresh. Configuration is resolved
// once up front; concurrent settings edits do not leak into a running
// recount.
func (c *Context) Recount(guildID, channelID, messageID int64) error {
	if allowed, retry := c.recountCooldown.Trigger(cooldownKey{GuildID: guildID}); !allowed {
		return &CooldownError{Retry: retry}
	}
	release, ok := c.recountLocks.TryLock(messageID)
	if !ok {
		return ErrRecountBusy
	}
	defer release()

	msg, err := c.Cache.FogMessage(c.API, channelID, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message %d not found", messageID)
	}

	original, err := c.ensureOriginal(guildID, channelID, messageID, msg)
	if err != nil {
		return err
	}
	// A frozen total must survive a recount untouched; unfreeze first.
	if original.Frozen {
		return ErrMessageFrozen
	}

	configs, err := c.ResolveAll(guildID, channelID)
	if err != nil {
		return err
	}
	chain, err := c.Cache.QualifiedChannelIDs(c.API, guildID, channelID)
	if err != nil {
		return err
	}
	authorRoles, authorIsBot, err := c.memberContext(guildID, original.AuthorID)
	if err != nil {
		return err
	}

	if err := database.DeleteAllVotes(c.DB, messageID); err != nil {
		return err
	}

	now := time.Now()
	for _, reaction := range msg.Reactions {
		emoji := EmojiFromReaction(reaction.Emoji)
		if !emojiMatchesAny(configs, emoji) {
			continue
		}
		if err := c.recountEmoji(original, msg, configs, chain, emoji, authorRoles, authorIsBot, now); err != nil {
			return err
		}
	}

	c.Log.Info("recount complete",
		zap.Int64("message", messageID), zap.Int64("guild", guildID))
	return c.Refresh(messageID, true)
}

// recountEmoji pages through the reactors of one emoji and writes a vote row
// for every (voter, config) pair the classifier accepts.
func (c *Context) recountEmoji(original *models.Original, msg *discordgo.Message, configs []*ResolvedConfig, chain []int64, emoji string, authorRoles []int64, authorIsBot bool, now time.Time) error {
	after := ""
	for {
		users, err := c.API.MessageReactions(
			FormatSnowflake(original.ChannelID), FormatSnowflake(original.MessageID),
			emoji, reactionPageSize, "", after)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("listing reactors for %q: %w", emoji, err)
		}
		for _, u := range users {
			if err := c.recountVoter(original, msg, configs, chain, emoji, u, authorRoles, authorIsBot, now); err != nil {
				return err
			}
		}
		if len(users) < reactionPageSize {
			return nil
		}
		after = users[len(users)-1].ID
	}
}

func (c *Context) recountVoter(original *models.Original, msg *discordgo.Message, configs []*ResolvedConfig, chain []int64, emoji string, u *discordgo.User, authorRoles []int64, authorIsBot bool, now time.Time) error {
	voterID, err := ParseSnowflake(u.ID)
	if err != nil {
		return err
	}
	voterRoles, _, err := c.memberContext(original.GuildID, voterID)
	if err != nil {
		return err
	}

	cls, err := c.ClassifyVote(&VoteEvent{
		Emoji:        emoji,
		Original:     original,
		Message:      msg,
		Configs:      configs,
		VoterID:      voterID,
		VoterRoles:   voterRoles,
		VoterIsBot:   u.Bot,
		AuthorRoles:  authorRoles,
		AuthorIsBot:  authorIsBot,
		ChannelChain: chain,
		Now:          now,
		SkipCooldown: true,
	})
	if err != nil {
		return err
	}
	if cls.Status != VoteValid {
		return nil
	}
	for _, rc := range cls.Upvote {
		if err := c.writeVote(original, rc.Starboard.ID, voterID, false); err != nil {
			return err
		}
	}
	for _, rc := range cls.Downvote {
		if err := c.writeVote(original, rc.Starboard.ID, voterID, true); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) writeVote(original *models.Original, starboardID, voterID int64, downvote bool) error {
	return database.UpsertVote(c.DB, &models.Vote{
		MessageID:    original.MessageID,
		StarboardID:  starboardID,
		UserID:       voterID,
		TargetAuthor: original.AuthorID,
		IsDownvote:   downvote,
	})
}

// ensureOriginal loads the original row, creating it from the fetched
// message when this is the first time the engine sees it.
func (c *Context) ensureOriginal(guildID, channelID, messageID int64, msg *discordgo.Message) (*models.Original, error) {
	original, err := database.GetOriginal(c.DB, messageID)
	if err == nil {
		return original, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	authorID := int64(0)
	if msg != nil && msg.Author != nil {
		if authorID, err = ParseSnowflake(msg.Author.ID); err != nil {
			return nil, err
		}
	}
	nsfw, err := c.Cache.FogChannelNSFW(c.API, guildID, channelID)
	if err != nil {
		return nil, err
	}
	original = &models.Original{
		MessageID: messageID,
		GuildID:   guildID,
		ChannelID: channelID,
		AuthorID:  authorID,
		IsNSFW:    nsfw,
	}
	if err := database.UpsertOriginal(c.DB, original); err != nil {
		return nil, err
	}
	return original, nil
}

// memberContext resolves a member's parsed role ids and bot flag through the
// fog caches. An unknown member yields no roles.
func (c *Context) memberContext(guildID, userID int64) ([]int64, bool, error) {
	member, err := c.Cache.FogMember(c.API, guildID, userID)
	if err != nil {
		return nil, false, err
	}
	var roles []int64
	isBot := false
	if member != nil {
		for _, r := range member.Roles {
			id, err := ParseSnowflake(r)
			if err != nil {
				continue
			}
			roles = append(roles, id)
		}
		if member.User != nil {
			isBot = member.User.Bot
		}
	} else if u, err := c.Cache.FogUser(c.API, userID); err == nil && u != nil {
		isBot = u.Bot
	}
	return roles, isBot, nil
}

func emojiMatchesAny(configs []*ResolvedConfig, emoji string) bool {
	for _, rc := range configs {
		if containsEmoji(rc.Settings.UpvoteEmojis, emoji) || containsEmoji(rc.Settings.DownvoteEmojis, emoji) {
			return true
		}
	}
	return false
}
