package core

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/database"
	"starboard-bot/models"
)

// HandleAutostarMessage validates a fresh message against every autostar
// channel covering its channel, seeds the configured reactions on valid
// messages, and deletes invalid ones where the channel says to.
func (c *Context) HandleAutostarMessage(guildID, channelID int64, msg *discordgo.Message) error {
	channels, err := database.AutostarChannelsFor(c.DB, guildID, channelID)
	if err != nil {
		return fmt.Errorf("loading autostar channels: %w", err)
	}
	if len(channels) == 0 {
		return nil
	}

	authorID := int64(0)
	authorIsBot := false
	if msg.Author != nil {
		if authorID, err = ParseSnowflake(msg.Author.ID); err != nil {
			return err
		}
		authorIsBot = msg.Author.Bot
	}
	authorRoles, _, err := c.memberContext(guildID, authorID)
	if err != nil {
		return err
	}
	chain, err := c.Cache.QualifiedChannelIDs(c.API, guildID, channelID)
	if err != nil {
		return err
	}
	messageID, err := ParseSnowflake(msg.ID)
	if err != nil {
		return err
	}

	for _, ac := range channels {
		valid, err := c.autostarValid(ac, msg, authorID, authorRoles, authorIsBot, chain)
		if err != nil {
			return err
		}
		if !valid {
			if ac.DeleteInvalid {
				c.Cache.AutoDeleted.Put(messageID, struct{}{})
				if err := c.API.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil && !IsNotFound(err) {
					c.Log.Debug("autostar delete failed",
						zap.Int64("message", messageID), zap.Error(err))
				}
			}
			continue
		}
		for _, e := range ac.Emojis {
			if err := c.API.MessageReactionAdd(msg.ChannelID, msg.ID, e); err != nil {
				c.Log.Debug("autostar react failed",
					zap.Int64("message", messageID), zap.String("emoji", e), zap.Error(err))
			}
		}
	}
	return nil
}

// autostarValid applies one autostar channel's own requirements plus its
// filter groups. Filter groups run without vote context, so voter predicates
// are skipped.
func (c *Context) autostarValid(ac *models.AutostarChannel, msg *discordgo.Message, authorID int64, authorRoles []int64, authorIsBot bool, chain []int64) (bool, error) {
	length := len([]rune(msg.Content))
	if ac.MinChars != nil && length < *ac.MinChars {
		return false, nil
	}
	if ac.MaxChars != nil && length > *ac.MaxChars {
		return false, nil
	}
	if ac.RequireImage && !MessageHasImage(msg) {
		return false, nil
	}

	groups, err := database.FilterGroupsForAutostar(c.DB, ac.ID)
	if err != nil {
		return false, fmt.Errorf("loading autostar filter groups: %w", err)
	}
	if len(groups) == 0 {
		return true, nil
	}
	messageID, err := ParseSnowflake(msg.ID)
	if err != nil {
		return false, err
	}
	fc := &FilterContext{
		UserID:           authorID,
		UserRoles:        authorRoles,
		UserIsBot:        authorIsBot,
		HasVoteContext:   false,
		ChannelChain:     chain,
		Message:          msg,
		MessageCreatedAt: SnowflakeTime(messageID),
		Now:              time.Now(),
	}
	return EvaluateGroups(groups, fc), nil
}
