package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"starboard-bot/models"
)

func TestSortOverrides(t *testing.T) {
	// Chain is [thread, parent, root]; an override naming the thread must
	// sort after one naming only the parent, so it wins the merge.
	chain := []int64{30, 20, 10}
	parentOv := &models.Override{ID: 1, ChannelIDs: []int64{20}}
	threadOv := &models.Override{ID: 2, ChannelIDs: []int64{30}}

	overrides := []*models.Override{threadOv, parentOv}
	SortOverrides(chain, overrides)
	assert.Equal(t, int64(1), overrides[0].ID)
	assert.Equal(t, int64(2), overrides[1].ID)

	// Same input order stays stable when neither matches earlier.
	a := &models.Override{ID: 3, ChannelIDs: []int64{10}}
	b := &models.Override{ID: 4, ChannelIDs: []int64{10}}
	overrides = []*models.Override{a, b}
	SortOverrides(chain, overrides)
	assert.Equal(t, int64(3), overrides[0].ID)
	assert.Equal(t, int64(4), overrides[1].ID)
}

func TestMergeSettings(t *testing.T) {
	base := models.DefaultSettings()

	parent := &models.Override{Delta: models.SettingsDelta{
		Required:     models.Some(5),
		DisplayEmoji: models.Some("🔥"),
	}}
	thread := &models.Override{Delta: models.SettingsDelta{
		Required: models.Some(8),
	}}

	merged := MergeSettings(base, []*models.Override{parent, thread})
	assert.Equal(t, 8, merged.Required, "later override wins")
	assert.Equal(t, "🔥", merged.DisplayEmoji, "untouched fields fall through")
	assert.Equal(t, base.UpvoteEmojis, merged.UpvoteEmojis)

	// The base record is not mutated.
	assert.Equal(t, 3, base.Required)
}

func TestResolvedConfigEnabled(t *testing.T) {
	sb := &models.Starboard{Settings: models.DefaultSettings()}
	rc := &ResolvedConfig{Starboard: sb, Settings: sb.Settings}
	assert.True(t, rc.Enabled())

	rc.Settings.Enabled = false
	assert.False(t, rc.Enabled())

	rc.Settings.Enabled = true
	rc.Starboard.PremiumLocked = true
	assert.False(t, rc.Enabled(), "premium lock behaves as disabled")
}
