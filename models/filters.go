package models

// FilterGroup is a named ordered sequence of filters. A group passes iff
// every filter in it passes.
type FilterGroup struct {
	ID       int64
	GuildID  int64
	Name     string
	Position int
	Filters  []*Filter
}

// Filter is an ordered sequence of checks. It passes iff every check passes,
// except that a passing check short-circuits the whole group to pass when
// InstantPass is set, and a failing check short-circuits the group to fail
// when InstantFail is set.
type Filter struct {
	ID          int64
	GroupID     int64
	Position    int
	InstantPass bool
	InstantFail bool
	Checks      []*FilterCheck
}

// FilterCheck is a conjunction of optional predicates over the user, message,
// and voter contexts. A nil/empty predicate is not evaluated.
type FilterCheck struct {
	ID       int64
	FilterID int64
	Position int

	// User context.
	UserIsBot            *bool   `json:"user_is_bot,omitempty"`
	UserHasAllRoles      []int64 `json:"user_has_all_roles,omitempty"`
	UserHasAnyRoles      []int64 `json:"user_has_any_roles,omitempty"`
	UserMissingAllRoles  []int64 `json:"user_missing_all_roles,omitempty"`
	UserMissingSomeRoles []int64 `json:"user_missing_some_roles,omitempty"`

	// Message context.
	InChannels           []int64 `json:"in_channels,omitempty"`
	NotInChannels        []int64 `json:"not_in_channels,omitempty"`
	ExpandChannelThreads bool    `json:"expand_channel_threads,omitempty"`
	MinAttachments       *int    `json:"min_attachments,omitempty"`
	MaxAttachments       *int    `json:"max_attachments,omitempty"`
	MinLength            *int    `json:"min_length,omitempty"`
	MaxLength            *int    `json:"max_length,omitempty"`
	MatchesRegex         *string `json:"matches_regex,omitempty"`
	NotMatchesRegex      *string `json:"not_matches_regex,omitempty"`
	MaxAgeSeconds        *int64  `json:"max_age_seconds,omitempty"`
	MinAgeSeconds        *int64  `json:"min_age_seconds,omitempty"`

	// Voter context. Skipped entirely when the group is evaluated outside a
	// vote; failed when a vote is being evaluated but the voter is unknown.
	VoterHasAllRoles      []int64 `json:"voter_has_all_roles,omitempty"`
	VoterHasAnyRoles      []int64 `json:"voter_has_any_roles,omitempty"`
	VoterMissingAllRoles  []int64 `json:"voter_missing_all_roles,omitempty"`
	VoterMissingSomeRoles []int64 `json:"voter_missing_some_roles,omitempty"`
}

// HasVoterPredicates reports whether the check carries any voter-context
// predicate.
func (c *FilterCheck) HasVoterPredicates() bool {
	return len(c.VoterHasAllRoles) > 0 ||
		len(c.VoterHasAnyRoles) > 0 ||
		len(c.VoterMissingAllRoles) > 0 ||
		len(c.VoterMissingSomeRoles) > 0
}
