package core

import (
	"regexp"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"starboard-bot/models"
)

// compiled regexes are shared process-wide; patterns are validated at write
// time so a failed compile here only happens for rows predating validation.
var regexCache sync.Map // pattern -> *regexp.Regexp

func compileCached(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// FilterContext is the (user, voter, message, channel) context a filter tree
// is evaluated against. Expensive lookups are resolved once by the caller
// through the fog caches and reused for every check.
type FilterContext struct {
	UserID    int64
	UserRoles []int64
	UserIsBot bool

	// Voter fields are only meaningful when HasVoteContext is true.
	HasVoteContext bool
	VoterID        int64
	VoterRoles     []int64
	VoterKnown     bool

	// ChannelChain is [self, ..., root] per QualifiedChannelIDs.
	ChannelChain []int64

	// Message may be nil when the original is unfetchable.
	Message          *discordgo.Message
	MessageCreatedAt time.Time

	Now time.Time
}

// EvaluateGroups reports whether every filter group passes.
func EvaluateGroups(groups []*models.FilterGroup, fc *FilterContext) bool {
	for _, g := range groups {
		if !evaluateGroup(g, fc) {
			return false
		}
	}
	return true
}

func evaluateGroup(g *models.FilterGroup, fc *FilterContext) bool {
	for _, f := range g.Filters {
		pass := true
		for _, check := range f.Checks {
			ok := evaluateCheck(check, fc)
			if ok && f.InstantPass {
				return true
			}
			if !ok && f.InstantFail {
				return false
			}
			if !ok {
				pass = false
			}
		}
		if !pass {
			return false
		}
	}
	return true
}

func hasAll(have []int64, want []int64) bool {
	for _, w := range want {
		if !containsID(have, w) {
			return false
		}
	}
	return true
}

func hasAny(have []int64, want []int64) bool {
	for _, w := range want {
		if containsID(have, w) {
			return true
		}
	}
	return false
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// evaluateCheck evaluates a check's predicate conjunction lazily, stopping
// at the first failure. A predicate whose context is unavailable fails the
// check, except that voter predicates are skipped entirely outside a vote.
func evaluateCheck(check *models.FilterCheck, fc *FilterContext) bool {
	// User context.
	if check.UserIsBot != nil && fc.UserIsBot != *check.UserIsBot {
		return false
	}
	if len(check.UserHasAllRoles) > 0 && !hasAll(fc.UserRoles, check.UserHasAllRoles) {
		return false
	}
	if len(check.UserHasAnyRoles) > 0 && !hasAny(fc.UserRoles, check.UserHasAnyRoles) {
		return false
	}
	if len(check.UserMissingAllRoles) > 0 && hasAny(fc.UserRoles, check.UserMissingAllRoles) {
		return false
	}
	if len(check.UserMissingSomeRoles) > 0 && hasAll(fc.UserRoles, check.UserMissingSomeRoles) {
		return false
	}

	// Channel context.
	if len(check.InChannels) > 0 {
		candidates := fc.ChannelChain
		if !check.ExpandChannelThreads && len(candidates) > 0 {
			candidates = candidates[:1]
		}
		if !hasAny(candidates, check.InChannels) {
			return false
		}
	}
	if len(check.NotInChannels) > 0 {
		candidates := fc.ChannelChain
		if !check.ExpandChannelThreads && len(candidates) > 0 {
			candidates = candidates[:1]
		}
		if hasAny(candidates, check.NotInChannels) {
			return false
		}
	}

	// Message context. A missing message fails any message predicate.
	needsMessage := check.MinAttachments != nil || check.MaxAttachments != nil ||
		check.MinLength != nil || check.MaxLength != nil ||
		check.MatchesRegex != nil || check.NotMatchesRegex != nil
	if needsMessage && fc.Message == nil {
		return false
	}
	if fc.Message != nil {
		attachments := len(fc.Message.Attachments)
		if check.MinAttachments != nil && attachments < *check.MinAttachments {
			return false
		}
		if check.MaxAttachments != nil && attachments > *check.MaxAttachments {
			return false
		}
		length := len([]rune(fc.Message.Content))
		if check.MinLength != nil && length < *check.MinLength {
			return false
		}
		if check.MaxLength != nil && length > *check.MaxLength {
			return false
		}
		if check.MatchesRegex != nil {
			re, err := compileCached(*check.MatchesRegex)
			if err != nil || !re.MatchString(fc.Message.Content) {
				return false
			}
		}
		if check.NotMatchesRegex != nil {
			re, err := compileCached(*check.NotMatchesRegex)
			if err != nil || re.MatchString(fc.Message.Content) {
				return false
			}
		}
	}
	if check.MaxAgeSeconds != nil || check.MinAgeSeconds != nil {
		if fc.MessageCreatedAt.IsZero() {
			return false
		}
		age := fc.Now.Sub(fc.MessageCreatedAt)
		if check.MaxAgeSeconds != nil && age > time.Duration(*check.MaxAgeSeconds)*time.Second {
			return false
		}
		if check.MinAgeSeconds != nil && age < time.Duration(*check.MinAgeSeconds)*time.Second {
			return false
		}
	}

	// Voter context: skipped outside votes, failed when the voter is needed
	// but unknown.
	if check.HasVoterPredicates() {
		if !fc.HasVoteContext {
			return true
		}
		if !fc.VoterKnown {
			return false
		}
		if len(check.VoterHasAllRoles) > 0 && !hasAll(fc.VoterRoles, check.VoterHasAllRoles) {
			return false
		}
		if len(check.VoterHasAnyRoles) > 0 && !hasAny(fc.VoterRoles, check.VoterHasAnyRoles) {
			return false
		}
		if len(check.VoterMissingAllRoles) > 0 && hasAny(fc.VoterRoles, check.VoterMissingAllRoles) {
			return false
		}
		if len(check.VoterMissingSomeRoles) > 0 && hasAll(fc.VoterRoles, check.VoterMissingSomeRoles) {
			return false
		}
	}

	return true
}
