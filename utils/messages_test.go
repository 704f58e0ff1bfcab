package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"starboard-bot/core"
	"starboard-bot/database"
)

func TestErrorText(t *testing.T) {
	cases := []struct {
		name string
		err  error
		bot  string
		web  string
	}{
		{
			name: "cooldown carries the retry delay",
			err:  &core.CooldownError{Retry: 90 * time.Second},
			bot:  "You're doing that too fast. Try again in 1m30s.",
			web:  "Rate limited. Retry in 1m30s.",
		},
		{
			name: "recount busy",
			err:  core.ErrRecountBusy,
			bot:  "Hold on, a recount for that message is already running.",
			web:  "A recount is already in progress.",
		},
		{
			name: "frozen",
			err:  core.ErrMessageFrozen,
			bot:  "That message is frozen, so its votes can't change. Unfreeze it first.",
			web:  "Votes for this message are frozen.",
		},
		{
			name: "not found",
			err:  fmt.Errorf("loading starboard: %w", database.ErrNotFound),
			bot:  "I couldn't find that.",
			web:  "Not found.",
		},
		{
			name: "duplicate",
			err:  database.ErrDuplicate,
			bot:  "That already exists.",
			web:  "Already exists.",
		},
		{
			name: "unrecognized errors pass through",
			err:  errors.New("wire fell out"),
			bot:  "Something went wrong: wire fell out",
			web:  "wire fell out",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.bot, BotErrorText(tc.err))
			assert.Equal(t, tc.web, WebErrorText(tc.err))
		})
	}
}
