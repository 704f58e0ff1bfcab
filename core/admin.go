package core

import (
	"errors"
	"fmt"

	"starboard-bot/database"
	"starboard-bot/models"
)

// adminOriginal makes sure the original row exists before an admin flag is
// flipped on it, fetching the message when the engine has never seen it.
func (c *Context) adminOriginal(guildID, channelID, messageID int64) (*models.Original, error) {
	original, err := database.GetOriginal(c.DB, messageID)
	if err == nil {
		return original, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	msg, err := c.Cache.FogMessage(c.API, channelID, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", messageID)
	}
	return c.ensureOriginal(guildID, channelID, messageID, msg)
}

// Force pins an original to one starboard, or to every starboard of the
// guild when starboardID is nil, bypassing thresholds and filters.
func (c *Context) Force(guildID, channelID, messageID int64, starboardID *int64) error {
	if _, err := c.adminOriginal(guildID, channelID, messageID); err != nil {
		return err
	}
	ids, err := c.forceTargets(guildID, starboardID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := database.SetForced(c.DB, messageID, id, true); err != nil {
			return err
		}
	}
	return c.Refresh(messageID, true)
}

// Unforce clears the forced flag for one starboard or all of them.
func (c *Context) Unforce(guildID, messageID int64, starboardID *int64) error {
	ids, err := c.forceTargets(guildID, starboardID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := database.SetForced(c.DB, messageID, id, false); err != nil {
			return err
		}
	}
	return c.Refresh(messageID, true)
}

func (c *Context) forceTargets(guildID int64, starboardID *int64) ([]int64, error) {
	if starboardID != nil {
		sb, err := database.GetStarboard(c.DB, *starboardID)
		if err != nil {
			return nil, err
		}
		if sb.GuildID != guildID {
			return nil, fmt.Errorf("starboard %d belongs to another guild", *starboardID)
		}
		return []int64{sb.ID}, nil
	}
	starboards, err := database.StarboardsByGuild(c.DB, guildID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(starboards))
	for _, sb := range starboards {
		ids = append(ids, sb.ID)
	}
	return ids, nil
}

// Trash marks an original so every destination post is removed and stays
// removed until untrashed.
func (c *Context) Trash(guildID, channelID, messageID int64, reason *string) error {
	if _, err := c.adminOriginal(guildID, channelID, messageID); err != nil {
		return err
	}
	if err := database.SetTrashed(c.DB, messageID, true, reason); err != nil {
		return err
	}
	return c.Refresh(messageID, true)
}

// Untrash reverses Trash and re-runs the decision.
func (c *Context) Untrash(messageID int64) error {
	if err := database.SetTrashed(c.DB, messageID, false, nil); err != nil {
		return err
	}
	return c.Refresh(messageID, true)
}

// Freeze stops vote ingestion and threshold movement for an original.
func (c *Context) Freeze(guildID, channelID, messageID int64) error {
	if _, err := c.adminOriginal(guildID, channelID, messageID); err != nil {
		return err
	}
	if err := database.SetFrozen(c.DB, messageID, true); err != nil {
		return err
	}
	return c.Refresh(messageID, true)
}

// Unfreeze reverses Freeze and re-runs the decision.
func (c *Context) Unfreeze(messageID int64) error {
	if err := database.SetFrozen(c.DB, messageID, false); err != nil {
		return err
	}
	return c.Refresh(messageID, true)
}

// MovePremiumLock transfers a premium lock between two same-kind entities in
// one guild and refreshes nothing; the next votes on affected channels pick
// up the new state.
func (c *Context) MovePremiumLock(guildID int64, kind string, fromID, toID int64) error {
	if kind == "starboard" {
		from, err := database.GetStarboard(c.DB, fromID)
		if err != nil {
			return err
		}
		if from.GuildID != guildID {
			return fmt.Errorf("starboard %d belongs to another guild", fromID)
		}
	}
	return database.MovePremiumLock(c.DB, kind, fromID, toID)
}
