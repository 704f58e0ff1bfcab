package core

import (
	"starboard-bot/models"
)

// Action is what the reconciler should do with one (original, starboard)
// pair's destination post.
type Action int

const (
	ActionNone Action = iota
	ActionSend
	ActionUpdate
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionSend:
		return "send"
	case ActionUpdate:
		return "update"
	case ActionRemove:
		return "remove"
	default:
		return "none"
	}
}

// UpdateKind distinguishes a full re-render from a point-line-only edit.
type UpdateKind int

const (
	// UpdateFull rebuilds the whole destination message.
	UpdateFull UpdateKind = iota
	// UpdatePartial edits only the content line, preserving the embeds that
	// were rendered while the original was still fetchable.
	UpdatePartial
)

// StateInput is everything the state machine reads. It is assembled by the
// refresh coordinator; the decision itself touches no IO.
type StateInput struct {
	Config         *ResolvedConfig
	Original       *models.Original
	MessageVisible bool
	HasPost        bool
	Points         int
	FilterPass     bool

	// DestinationNSFW reports whether the starboard's channel is age gated.
	// An NSFW original may only be copied into an NSFW destination.
	DestinationNSFW bool

	// Forced bypasses thresholds and filters for this starboard.
	Forced bool
	// GroupLoser marks a config that lost exclusive-group arbitration.
	GroupLoser bool
}

// DecideAction maps one pair's state to the action the reconciler performs.
// Order matters: trash, deletion policy, and freezing take precedence over
// thresholds.
func DecideAction(in *StateInput) (Action, UpdateKind) {
	s := &in.Config.Settings
	kind := UpdateFull
	if !in.MessageVisible {
		kind = UpdatePartial
	}

	if !in.Config.Enabled() {
		return ActionNone, kind
	}

	if in.Original.Trashed {
		return removeIfPosted(in.HasPost), kind
	}

	// Not even a force may put age-gated content in a SFW channel.
	if in.Original.IsNSFW && !in.DestinationNSFW {
		return removeIfPosted(in.HasPost), kind
	}

	// Deletion of the destination copy is handled by the delete handler via
	// the on_delete policy; this branch covers the original going away.
	if !in.MessageVisible && s.LinkDeletes {
		return removeIfPosted(in.HasPost), kind
	}

	if in.Original.Frozen {
		if in.HasPost {
			return ActionUpdate, UpdatePartial
		}
		return ActionNone, kind
	}

	if in.GroupLoser {
		return removeIfPosted(in.HasPost), kind
	}

	if !in.FilterPass && !in.Forced {
		return removeIfPosted(in.HasPost), kind
	}

	above := in.Forced || in.Points >= s.Required
	if in.HasPost {
		// A nil remove floor means a posted copy never leaves on points.
		if in.Forced || s.RequiredRemove == nil || in.Points > *s.RequiredRemove {
			return ActionUpdate, kind
		}
		return ActionRemove, kind
	}
	if above {
		return ActionSend, kind
	}
	return ActionNone, kind
}

func removeIfPosted(hasPost bool) Action {
	if hasPost {
		return ActionRemove
	}
	return ActionNone
}
