package models

import "fmt"

// OnDelete controls what happens to an original when its message is deleted
// from the source channel.
type OnDelete int

const (
	OnDeleteRefresh OnDelete = iota
	OnDeleteIgnore
	OnDeleteTrash
	OnDeleteFreeze
)

// ParseOnDelete validates a stored on_delete value. Unknown values are
// rejected here so nothing downstream has to handle them.
func ParseOnDelete(v int) (OnDelete, error) {
	switch OnDelete(v) {
	case OnDeleteRefresh, OnDeleteIgnore, OnDeleteTrash, OnDeleteFreeze:
		return OnDelete(v), nil
	}
	return 0, fmt.Errorf("invalid on_delete value: %d", v)
}

func (o OnDelete) String() string {
	switch o {
	case OnDeleteRefresh:
		return "refresh"
	case OnDeleteIgnore:
		return "ignore"
	case OnDeleteTrash:
		return "trash"
	case OnDeleteFreeze:
		return "freeze"
	}
	return fmt.Sprintf("on_delete(%d)", int(o))
}

// GoToMessage selects how the published copy links back to the original.
type GoToMessage int

const (
	GoToMessageNone GoToMessage = iota
	GoToMessageLink
	GoToMessageButton
	GoToMessageMention
)

// ParseGoToMessage validates a stored go_to_message value.
func ParseGoToMessage(v int) (GoToMessage, error) {
	switch GoToMessage(v) {
	case GoToMessageNone, GoToMessageLink, GoToMessageButton, GoToMessageMention:
		return GoToMessage(v), nil
	}
	return 0, fmt.Errorf("invalid go_to_message value: %d", v)
}

func (g GoToMessage) String() string {
	switch g {
	case GoToMessageNone:
		return "none"
	case GoToMessageLink:
		return "link"
	case GoToMessageButton:
		return "button"
	case GoToMessageMention:
		return "mention"
	}
	return fmt.Sprintf("go_to_message(%d)", int(g))
}
