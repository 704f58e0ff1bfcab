package core

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"starboard-bot/database"
	"starboard-bot/models"
)

// VoteStatus is the classifier's verdict for one reaction.
type VoteStatus int

const (
	// VoteIgnore: the reaction is not a vote anywhere; leave it alone.
	VoteIgnore VoteStatus = iota
	// VoteRemove: ask the chat layer to strip the reaction.
	VoteRemove
	// VoteValid: the reaction counts on the listed configs.
	VoteValid
)

// VoteClassification lists the configs a vote counts for, split by
// direction. The two lists are disjoint because each config's emoji sets
// are.
type VoteClassification struct {
	Status   VoteStatus
	Upvote   []*ResolvedConfig
	Downvote []*ResolvedConfig
}

// VoteEvent is one reaction together with the context the classifier needs.
// The message may be nil when unfetchable.
type VoteEvent struct {
	Emoji    string
	Original *models.Original
	Message  *discordgo.Message
	Configs  []*ResolvedConfig

	VoterID    int64
	VoterRoles []int64
	VoterIsBot bool

	AuthorRoles []int64
	AuthorIsBot bool

	ChannelChain []int64
	Now          time.Time

	// SkipCooldown bypasses per-starboard vote cooldowns. Set during
	// recounts, which replay reactions in bulk.
	SkipCooldown bool
}

// ClassifyVote decides whether a reaction is ignored, stripped, or counted,
// and on which configs. Rules follow each resolved config independently; a
// config that accepted the emoji but failed a non-emoji predicate makes the
// reaction a candidate for removal when that config says to strip invalid
// reactions.
func (c *Context) ClassifyVote(ev *VoteEvent) (*VoteClassification, error) {
	out := &VoteClassification{Status: VoteIgnore}

	// Bots never vote, and frozen originals take no new votes.
	if ev.VoterIsBot || ev.Original.Frozen {
		return out, nil
	}

	removeCandidate := false
	for _, rc := range ev.Configs {
		if !rc.Enabled() {
			continue
		}

		isUp := containsEmoji(rc.Settings.UpvoteEmojis, ev.Emoji)
		isDown := containsEmoji(rc.Settings.DownvoteEmojis, ev.Emoji)
		if !isUp && !isDown {
			continue
		}

		ok, err := c.voteAllowed(rc, ev)
		if err != nil {
			return nil, err
		}
		if !ok {
			if rc.Settings.RemoveInvalidReactions {
				removeCandidate = true
			}
			continue
		}

		if isUp {
			out.Upvote = append(out.Upvote, rc)
		} else {
			out.Downvote = append(out.Downvote, rc)
		}
	}

	switch {
	case len(out.Upvote)+len(out.Downvote) > 0:
		out.Status = VoteValid
	case removeCandidate:
		out.Status = VoteRemove
	}
	return out, nil
}

// voteAllowed applies one config's non-emoji requirement predicates.
func (c *Context) voteAllowed(rc *ResolvedConfig, ev *VoteEvent) (bool, error) {
	s := &rc.Settings

	if !s.SelfVote && ev.VoterID == ev.Original.AuthorID {
		return false, nil
	}
	if !s.AllowBots && ev.AuthorIsBot {
		return false, nil
	}
	if s.RequireImage && !MessageHasImage(ev.Message) {
		return false, nil
	}

	age := ev.Now.Sub(SnowflakeTime(ev.Original.MessageID))
	if s.OlderThan > 0 && age < time.Duration(s.OlderThan)*time.Second {
		return false, nil
	}
	if s.NewerThan > 0 && age > time.Duration(s.NewerThan)*time.Second {
		return false, nil
	}

	if s.MatchesRegex != nil || s.NotMatchesRegex != nil {
		if ev.Message == nil {
			return false, nil
		}
		if s.MatchesRegex != nil {
			re, err := compileCached(*s.MatchesRegex)
			if err != nil || !re.MatchString(ev.Message.Content) {
				return false, nil
			}
		}
		if s.NotMatchesRegex != nil {
			re, err := compileCached(*s.NotMatchesRegex)
			if err != nil || re.MatchString(ev.Message.Content) {
				return false, nil
			}
		}
	}

	if s.CooldownEnabled && !ev.SkipCooldown {
		key := cooldownKey{StarboardID: rc.Starboard.ID, ChannelID: ev.Original.ChannelID}
		allowed, _ := c.voteCooldown.TriggerWith(key, s.CooldownCapacity, time.Duration(s.CooldownPeriod)*time.Second)
		if !allowed {
			return false, nil
		}
	}

	groups, err := database.FilterGroupsForStarboard(c.DB, rc.Starboard.ID)
	if err != nil {
		return false, fmt.Errorf("loading filter groups: %w", err)
	}
	if len(groups) > 0 {
		fc := &FilterContext{
			UserID:           ev.Original.AuthorID,
			UserRoles:        ev.AuthorRoles,
			UserIsBot:        ev.AuthorIsBot,
			HasVoteContext:   true,
			VoterID:          ev.VoterID,
			VoterRoles:       ev.VoterRoles,
			VoterKnown:       true,
			ChannelChain:     ev.ChannelChain,
			Message:          ev.Message,
			MessageCreatedAt: SnowflakeTime(ev.Original.MessageID),
			Now:              ev.Now,
		}
		if !EvaluateGroups(groups, fc) {
			return false, nil
		}
	}

	sbID := rc.Starboard.ID
	voterPerms, err := c.EffectivePermissions(rc.Starboard.GuildID, ev.VoterRoles, &sbID)
	if err != nil {
		return false, err
	}
	if !voterPerms.GiveVotes {
		return false, nil
	}
	authorPerms, err := c.EffectivePermissions(rc.Starboard.GuildID, ev.AuthorRoles, &sbID)
	if err != nil {
		return false, err
	}
	if !authorPerms.ReceiveVotes {
		return false, nil
	}

	return true, nil
}

// filterOutcome evaluates a starboard's filter groups against the original's
// author and message without vote context. The post state machine consumes
// this to decide whether an already-posted message should stay.
func (c *Context) filterOutcome(rc *ResolvedConfig, original *models.Original, msg *discordgo.Message, authorRoles []int64, authorIsBot bool, chain []int64) (bool, error) {
	groups, err := database.FilterGroupsForStarboard(c.DB, rc.Starboard.ID)
	if err != nil {
		return false, fmt.Errorf("loading filter groups: %w", err)
	}
	if len(groups) == 0 {
		return true, nil
	}
	fc := &FilterContext{
		UserID:           original.AuthorID,
		UserRoles:        authorRoles,
		UserIsBot:        authorIsBot,
		HasVoteContext:   false,
		ChannelChain:     chain,
		Message:          msg,
		MessageCreatedAt: SnowflakeTime(original.MessageID),
		Now:              time.Now(),
	}
	return EvaluateGroups(groups, fc), nil
}
