package core

import (
	"fmt"
	"sort"

	"starboard-bot/database"
	"starboard-bot/models"
)

// ResolvedConfig is one starboard's settings after layering the overrides
// that apply to a particular source channel.
type ResolvedConfig struct {
	Starboard *models.Starboard
	Overrides []*models.Override
	Settings  models.Settings
}

// Enabled reports whether the config takes part in vote handling at all. A
// premium-locked starboard behaves as disabled regardless of settings.
func (rc *ResolvedConfig) Enabled() bool {
	return rc.Settings.Enabled && !rc.Starboard.PremiumLocked
}

// SortOverrides orders overrides so that ones matching a channel closer to
// the chain head apply last (and therefore win the merge). The comparison
// walks the chain and decides at the first position where exactly one of the
// two overrides contains the channel.
func SortOverrides(chain []int64, overrides []*models.Override) {
	sort.SliceStable(overrides, func(i, j int) bool {
		for _, id := range chain {
			iHas := overrides[i].AppliesTo(id)
			jHas := overrides[j].AppliesTo(id)
			if iHas != jHas {
				// The one matching closer to the head sorts last.
				return jHas
			}
		}
		return false
	})
}

// MergeSettings layers sorted overrides over the starboard's base settings.
func MergeSettings(base models.Settings, overrides []*models.Override) models.Settings {
	merged := base
	for _, ov := range overrides {
		models.ApplyDelta(&merged, &ov.Delta)
	}
	return merged
}

// ResolveStarboard produces the resolved config of one starboard for a
// source channel.
func (c *Context) ResolveStarboard(sb *models.Starboard, channelID int64) (*ResolvedConfig, error) {
	chain, err := c.Cache.QualifiedChannelIDs(c.API, sb.GuildID, channelID)
	if err != nil {
		return nil, err
	}

	all, err := database.OverridesForStarboard(c.DB, sb.ID)
	if err != nil {
		return nil, fmt.Errorf("loading overrides for starboard %d: %w", sb.ID, err)
	}
	var applicable []*models.Override
	for _, ov := range all {
		for _, id := range chain {
			if ov.AppliesTo(id) {
				applicable = append(applicable, ov)
				break
			}
		}
	}
	SortOverrides(chain, applicable)

	return &ResolvedConfig{
		Starboard: sb,
		Overrides: applicable,
		Settings:  MergeSettings(sb.Settings, applicable),
	}, nil
}

// ResolveAll resolves every starboard of a guild for a source channel.
func (c *Context) ResolveAll(guildID, channelID int64) ([]*ResolvedConfig, error) {
	starboards, err := database.StarboardsByGuild(c.DB, guildID)
	if err != nil {
		return nil, fmt.Errorf("loading starboards for guild %d: %w", guildID, err)
	}
	configs := make([]*ResolvedConfig, 0, len(starboards))
	for _, sb := range starboards {
		rc, err := c.ResolveStarboard(sb, channelID)
		if err != nil {
			return nil, err
		}
		configs = append(configs, rc)
	}
	return configs, nil
}
