package models

// Per-guild and per-entity ceilings, enforced by the store's create paths.
const (
	MaxStarboardsPerGuild       = 10
	MaxOverridesPerGuild        = 10
	MaxExclusiveGroupsPerGuild  = 10
	MaxPermRolesPerGuild        = 50
	MaxAutostarChannelsPerGuild = 10
	MaxFilterGroupsPerGuild     = 10
	MaxFiltersPerGroup          = 10
	MaxChecksPerFilter          = 10
	MaxChannelsPerOverride      = 100
	MaxVoteEmojis               = 10
)
