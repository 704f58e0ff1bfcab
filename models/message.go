package models

// Original is a message in a normal channel that is the subject of votes.
// Created on the first vote or by an admin command; never mutated by its
// author.
type Original struct {
	MessageID   int64
	GuildID     int64
	ChannelID   int64
	AuthorID    int64
	IsNSFW      bool
	ForcedTo    []int64 // starboard ids this message is posted to regardless of votes
	Trashed     bool
	TrashReason *string
	Frozen      bool
}

// IsForcedTo reports whether the original is forced to the given starboard.
func (o *Original) IsForcedTo(starboardID int64) bool {
	for _, id := range o.ForcedTo {
		if id == starboardID {
			return true
		}
	}
	return false
}

// Vote is one validated reaction, keyed by (original, starboard, voter).
type Vote struct {
	MessageID    int64
	StarboardID  int64
	UserID       int64
	TargetAuthor int64
	IsDownvote   bool
}

// PublishedPost is the copy of an original in a starboard's destination
// channel, keyed by (original, starboard).
type PublishedPost struct {
	MessageID           int64 // original message id
	StarboardID         int64
	PostID              int64 // destination message id
	LastKnownPointCount int
}
