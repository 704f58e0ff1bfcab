package models

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Settings is the flat per-starboard settings record. Overrides layer sparse
// deltas on top of it; see SettingsDelta.
type Settings struct {
	// Style
	DisplayEmoji     string
	PingAuthor       bool
	UseServerProfile bool
	ExtraEmbeds      bool
	UseWebhook       bool

	// Embed
	Color           int
	GoToMessage     GoToMessage
	AttachmentsList bool
	RepliedTo       bool

	// Requirements
	Required int
	// RequiredRemove is the point floor a posted message must stay above.
	// nil means no floor: once posted, the copy never leaves on points alone.
	RequiredRemove  *int
	UpvoteEmojis    []string
	DownvoteEmojis  []string
	SelfVote        bool
	AllowBots       bool
	RequireImage    bool
	OlderThan       int64 // seconds; 0 disables
	NewerThan       int64 // seconds; 0 disables
	MatchesRegex    *string
	NotMatchesRegex *string

	// Behavior
	Enabled                bool
	AutoreactUpvote        bool
	AutoreactDownvote      bool
	RemoveInvalidReactions bool
	LinkDeletes            bool
	LinkEdits              bool
	OnDelete               OnDelete
	CooldownEnabled        bool
	CooldownCapacity       int
	CooldownPeriod         int // seconds
	ExclusiveGroup         *int64
	ExclusiveGroupPriority int
}

// DefaultSettings returns the settings a freshly created starboard gets.
func DefaultSettings() Settings {
	removeAt := 0
	return Settings{
		DisplayEmoji:     "⭐",
		ExtraEmbeds:      true,
		Color:            0xFFE19C,
		GoToMessage:      GoToMessageLink,
		AttachmentsList:  true,
		RepliedTo:        true,
		Required:         3,
		RequiredRemove:   &removeAt,
		UpvoteEmojis:     []string{"⭐"},
		AllowBots:        true,
		Enabled:          true,
		LinkDeletes:      true,
		LinkEdits:        true,
		OnDelete:         OnDeleteRefresh,
		CooldownCapacity: 5,
		CooldownPeriod:   6,
	}
}

// Validate enforces the write-time invariants on a fully merged settings
// record.
func (s *Settings) Validate() error {
	if s.RequiredRemove != nil && s.Required <= *s.RequiredRemove {
		return fmt.Errorf("required (%d) must be greater than required_remove (%d)", s.Required, *s.RequiredRemove)
	}
	if len(s.UpvoteEmojis)+len(s.DownvoteEmojis) > MaxVoteEmojis {
		return fmt.Errorf("at most %d vote emojis per starboard", MaxVoteEmojis)
	}
	up := make(map[string]struct{}, len(s.UpvoteEmojis))
	for _, e := range s.UpvoteEmojis {
		up[e] = struct{}{}
	}
	for _, e := range s.DownvoteEmojis {
		if _, ok := up[e]; ok {
			return fmt.Errorf("emoji %q cannot be both an upvote and a downvote emoji", e)
		}
	}
	for _, p := range []*string{s.MatchesRegex, s.NotMatchesRegex} {
		if p == nil {
			continue
		}
		if _, err := regexp.Compile(*p); err != nil {
			return fmt.Errorf("invalid regex %q: %w", *p, err)
		}
	}
	if s.CooldownEnabled && (s.CooldownCapacity <= 0 || s.CooldownPeriod <= 0) {
		return fmt.Errorf("cooldown capacity and period must be positive when the cooldown is enabled")
	}
	if _, err := ParseOnDelete(int(s.OnDelete)); err != nil {
		return err
	}
	if _, err := ParseGoToMessage(int(s.GoToMessage)); err != nil {
		return err
	}
	return nil
}

// Opt is a sparse delta slot: absent, explicitly cleared, or set to a value.
// Clearing only means something for nullable settings fields.
type Opt[T any] struct {
	Set  bool
	Null bool
	Val  T
}

// Some returns a set slot.
func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Val: v} }

// Cleared returns a slot that clears the field to null.
func Cleared[T any]() Opt[T] { return Opt[T]{Set: true, Null: true} }

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Val)
}

// SettingsDelta is the sparse settings record carried by an override. Every
// field is independently absent, cleared, or set.
type SettingsDelta struct {
	DisplayEmoji     Opt[string]
	PingAuthor       Opt[bool]
	UseServerProfile Opt[bool]
	ExtraEmbeds      Opt[bool]
	UseWebhook       Opt[bool]

	Color           Opt[int]
	GoToMessage     Opt[GoToMessage]
	AttachmentsList Opt[bool]
	RepliedTo       Opt[bool]

	Required        Opt[int]
	RequiredRemove  Opt[int]
	UpvoteEmojis    Opt[[]string]
	DownvoteEmojis  Opt[[]string]
	SelfVote        Opt[bool]
	AllowBots       Opt[bool]
	RequireImage    Opt[bool]
	OlderThan       Opt[int64]
	NewerThan       Opt[int64]
	MatchesRegex    Opt[string]
	NotMatchesRegex Opt[string]

	Enabled                Opt[bool]
	AutoreactUpvote        Opt[bool]
	AutoreactDownvote      Opt[bool]
	RemoveInvalidReactions Opt[bool]
	LinkDeletes            Opt[bool]
	LinkEdits              Opt[bool]
	OnDelete               Opt[OnDelete]
	CooldownEnabled        Opt[bool]
	CooldownCapacity       Opt[int]
	CooldownPeriod         Opt[int]
	ExclusiveGroup         Opt[int64]
	ExclusiveGroupPriority Opt[int]
}

// IsEmpty reports whether no field of the delta is set.
func (d *SettingsDelta) IsEmpty() bool {
	for _, f := range settingsFields {
		if f.present(d) {
			return false
		}
	}
	return true
}

// settingsField describes one settings column. The single table below drives
// the override merge, the sparse SQL UPDATE builder, and the JSON form of a
// delta, so the three can never disagree.
type settingsField struct {
	column  string
	present func(*SettingsDelta) bool
	apply   func(*Settings, *SettingsDelta)
	arg     func(*SettingsDelta) (any, error)
	encode  func(*SettingsDelta) ([]byte, error)
	decode  func(*SettingsDelta, []byte) error
}

func field[T any](column string, get func(*SettingsDelta) *Opt[T], set func(*Settings, Opt[T])) settingsField {
	return settingsField{
		column:  column,
		present: func(d *SettingsDelta) bool { return get(d).Set },
		apply: func(s *Settings, d *SettingsDelta) {
			if o := get(d); o.Set {
				set(s, *o)
			}
		},
		arg: func(d *SettingsDelta) (any, error) {
			o := get(d)
			if o.Null {
				return nil, nil
			}
			return sqlValue(o.Val)
		},
		encode: func(d *SettingsDelta) ([]byte, error) { return json.Marshal(*get(d)) },
		decode: func(d *SettingsDelta, raw []byte) error { return json.Unmarshal(raw, get(d)) },
	}
}

// sqlValue converts a delta value into something database/sql can bind.
func sqlValue(v any) (any, error) {
	switch t := v.(type) {
	case []string:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case OnDelete:
		return int64(t), nil
	case GoToMessage:
		return int64(t), nil
	default:
		return v, nil
	}
}

var settingsFields = []settingsField{
	field("display_emoji", func(d *SettingsDelta) *Opt[string] { return &d.DisplayEmoji },
		func(s *Settings, o Opt[string]) { s.DisplayEmoji = o.Val }),
	field("ping_author", func(d *SettingsDelta) *Opt[bool] { return &d.PingAuthor },
		func(s *Settings, o Opt[bool]) { s.PingAuthor = o.Val }),
	field("use_server_profile", func(d *SettingsDelta) *Opt[bool] { return &d.UseServerProfile },
		func(s *Settings, o Opt[bool]) { s.UseServerProfile = o.Val }),
	field("extra_embeds", func(d *SettingsDelta) *Opt[bool] { return &d.ExtraEmbeds },
		func(s *Settings, o Opt[bool]) { s.ExtraEmbeds = o.Val }),
	field("use_webhook", func(d *SettingsDelta) *Opt[bool] { return &d.UseWebhook },
		func(s *Settings, o Opt[bool]) { s.UseWebhook = o.Val }),

	field("color", func(d *SettingsDelta) *Opt[int] { return &d.Color },
		func(s *Settings, o Opt[int]) { s.Color = o.Val }),
	field("go_to_message", func(d *SettingsDelta) *Opt[GoToMessage] { return &d.GoToMessage },
		func(s *Settings, o Opt[GoToMessage]) { s.GoToMessage = o.Val }),
	field("attachments_list", func(d *SettingsDelta) *Opt[bool] { return &d.AttachmentsList },
		func(s *Settings, o Opt[bool]) { s.AttachmentsList = o.Val }),
	field("replied_to", func(d *SettingsDelta) *Opt[bool] { return &d.RepliedTo },
		func(s *Settings, o Opt[bool]) { s.RepliedTo = o.Val }),

	field("required", func(d *SettingsDelta) *Opt[int] { return &d.Required },
		func(s *Settings, o Opt[int]) { s.Required = o.Val }),
	field("required_remove", func(d *SettingsDelta) *Opt[int] { return &d.RequiredRemove },
		func(s *Settings, o Opt[int]) {
			if o.Null {
				s.RequiredRemove = nil
			} else {
				v := o.Val
				s.RequiredRemove = &v
			}
		}),
	field("upvote_emojis", func(d *SettingsDelta) *Opt[[]string] { return &d.UpvoteEmojis },
		func(s *Settings, o Opt[[]string]) { s.UpvoteEmojis = o.Val }),
	field("downvote_emojis", func(d *SettingsDelta) *Opt[[]string] { return &d.DownvoteEmojis },
		func(s *Settings, o Opt[[]string]) { s.DownvoteEmojis = o.Val }),
	field("self_vote", func(d *SettingsDelta) *Opt[bool] { return &d.SelfVote },
		func(s *Settings, o Opt[bool]) { s.SelfVote = o.Val }),
	field("allow_bots", func(d *SettingsDelta) *Opt[bool] { return &d.AllowBots },
		func(s *Settings, o Opt[bool]) { s.AllowBots = o.Val }),
	field("require_image", func(d *SettingsDelta) *Opt[bool] { return &d.RequireImage },
		func(s *Settings, o Opt[bool]) { s.RequireImage = o.Val }),
	field("older_than", func(d *SettingsDelta) *Opt[int64] { return &d.OlderThan },
		func(s *Settings, o Opt[int64]) { s.OlderThan = o.Val }),
	field("newer_than", func(d *SettingsDelta) *Opt[int64] { return &d.NewerThan },
		func(s *Settings, o Opt[int64]) { s.NewerThan = o.Val }),
	field("matches_regex", func(d *SettingsDelta) *Opt[string] { return &d.MatchesRegex },
		func(s *Settings, o Opt[string]) {
			if o.Null {
				s.MatchesRegex = nil
			} else {
				v := o.Val
				s.MatchesRegex = &v
			}
		}),
	field("not_matches_regex", func(d *SettingsDelta) *Opt[string] { return &d.NotMatchesRegex },
		func(s *Settings, o Opt[string]) {
			if o.Null {
				s.NotMatchesRegex = nil
			} else {
				v := o.Val
				s.NotMatchesRegex = &v
			}
		}),

	field("enabled", func(d *SettingsDelta) *Opt[bool] { return &d.Enabled },
		func(s *Settings, o Opt[bool]) { s.Enabled = o.Val }),
	field("autoreact_upvote", func(d *SettingsDelta) *Opt[bool] { return &d.AutoreactUpvote },
		func(s *Settings, o Opt[bool]) { s.AutoreactUpvote = o.Val }),
	field("autoreact_downvote", func(d *SettingsDelta) *Opt[bool] { return &d.AutoreactDownvote },
		func(s *Settings, o Opt[bool]) { s.AutoreactDownvote = o.Val }),
	field("remove_invalid_reactions", func(d *SettingsDelta) *Opt[bool] { return &d.RemoveInvalidReactions },
		func(s *Settings, o Opt[bool]) { s.RemoveInvalidReactions = o.Val }),
	field("link_deletes", func(d *SettingsDelta) *Opt[bool] { return &d.LinkDeletes },
		func(s *Settings, o Opt[bool]) { s.LinkDeletes = o.Val }),
	field("link_edits", func(d *SettingsDelta) *Opt[bool] { return &d.LinkEdits },
		func(s *Settings, o Opt[bool]) { s.LinkEdits = o.Val }),
	field("on_delete", func(d *SettingsDelta) *Opt[OnDelete] { return &d.OnDelete },
		func(s *Settings, o Opt[OnDelete]) { s.OnDelete = o.Val }),
	field("cooldown_enabled", func(d *SettingsDelta) *Opt[bool] { return &d.CooldownEnabled },
		func(s *Settings, o Opt[bool]) { s.CooldownEnabled = o.Val }),
	field("cooldown_capacity", func(d *SettingsDelta) *Opt[int] { return &d.CooldownCapacity },
		func(s *Settings, o Opt[int]) { s.CooldownCapacity = o.Val }),
	field("cooldown_period", func(d *SettingsDelta) *Opt[int] { return &d.CooldownPeriod },
		func(s *Settings, o Opt[int]) { s.CooldownPeriod = o.Val }),
	field("exclusive_group", func(d *SettingsDelta) *Opt[int64] { return &d.ExclusiveGroup },
		func(s *Settings, o Opt[int64]) {
			if o.Null {
				s.ExclusiveGroup = nil
			} else {
				v := o.Val
				s.ExclusiveGroup = &v
			}
		}),
	field("exclusive_group_priority", func(d *SettingsDelta) *Opt[int] { return &d.ExclusiveGroupPriority },
		func(s *Settings, o Opt[int]) { s.ExclusiveGroupPriority = o.Val }),
}

// ApplyDelta overlays every set field of the delta onto the settings record.
// A cleared field overrides a non-null parent value.
func ApplyDelta(s *Settings, d *SettingsDelta) {
	for _, f := range settingsFields {
		f.apply(s, d)
	}
}

// DeltaColumns returns the column names and bind arguments for the set fields
// of a delta, in schema order. It backs the sparse UPDATE builder.
func DeltaColumns(d *SettingsDelta) ([]string, []any, error) {
	var cols []string
	var args []any
	for _, f := range settingsFields {
		if !f.present(d) {
			continue
		}
		v, err := f.arg(d)
		if err != nil {
			return nil, nil, fmt.Errorf("building column %s: %w", f.column, err)
		}
		cols = append(cols, f.column)
		args = append(args, v)
	}
	return cols, args, nil
}

// MarshalJSON emits only the set fields, with cleared fields as JSON null.
func (d SettingsDelta) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(settingsFields))
	for _, f := range settingsFields {
		if !f.present(&d) {
			continue
		}
		raw, err := f.encode(&d)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.column, err)
		}
		out[f.column] = raw
	}
	return json.Marshal(out)
}

func (d *SettingsDelta) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, f := range settingsFields {
		r, ok := raw[f.column]
		if !ok {
			continue
		}
		if err := f.decode(d, r); err != nil {
			return fmt.Errorf("decoding %s: %w", f.column, err)
		}
	}
	return nil
}
