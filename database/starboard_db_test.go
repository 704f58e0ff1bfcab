package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starboard-bot/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStarboardCRUD(t *testing.T) {
	db := testDB(t)

	sb, err := CreateStarboard(db, 1, "stars", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sb.GuildID)
	assert.Equal(t, "stars", sb.Name)
	assert.Equal(t, int64(100), sb.ChannelID)

	t.Run("new starboards carry the defaults", func(t *testing.T) {
		assert.Equal(t, 3, sb.Settings.Required)
		assert.Equal(t, []string{"⭐"}, sb.Settings.UpvoteEmojis)
		assert.Empty(t, sb.Settings.DownvoteEmojis)
		assert.True(t, sb.Settings.Enabled)
		assert.True(t, sb.Settings.LinkDeletes)
		assert.Equal(t, models.OnDeleteRefresh, sb.Settings.OnDelete)
		assert.Nil(t, sb.WebhookID)
		assert.Nil(t, sb.Settings.ExclusiveGroup)
	})

	t.Run("lookup by name", func(t *testing.T) {
		got, err := GetStarboardByName(db, 1, "stars")
		require.NoError(t, err)
		assert.Equal(t, sb.ID, got.ID)

		_, err = GetStarboardByName(db, 1, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate name in the same guild", func(t *testing.T) {
		_, err := CreateStarboard(db, 1, "stars", 101)
		assert.ErrorIs(t, err, ErrDuplicate)

		// Same name in another guild is fine.
		_, err = CreateStarboard(db, 2, "stars", 101)
		assert.NoError(t, err)
	})

	t.Run("list is scoped to the guild", func(t *testing.T) {
		_, err := CreateStarboard(db, 1, "second", 102)
		require.NoError(t, err)
		list, err := StarboardsByGuild(db, 1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "stars", list[0].Name)
		assert.Equal(t, "second", list[1].Name)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, DeleteStarboard(db, sb.ID))
		assert.ErrorIs(t, DeleteStarboard(db, sb.ID), ErrNotFound)
		_, err := GetStarboard(db, sb.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStarboardCeiling(t *testing.T) {
	db := testDB(t)
	for i := 0; i < models.MaxStarboardsPerGuild; i++ {
		_, err := CreateStarboard(db, 1, "sb"+string(rune('a'+i)), int64(100+i))
		require.NoError(t, err)
	}
	_, err := CreateStarboard(db, 1, "overflow", 999)
	assert.ErrorIs(t, err, ErrLimit)

	// The ceiling is per guild.
	_, err = CreateStarboard(db, 2, "overflow", 999)
	assert.NoError(t, err)
}

func TestUpdateStarboardSettings(t *testing.T) {
	db := testDB(t)
	sb, err := CreateStarboard(db, 1, "stars", 100)
	require.NoError(t, err)

	t.Run("sparse delta touches only the named fields", func(t *testing.T) {
		delta := &models.SettingsDelta{
			Required:     models.Some(5),
			SelfVote:     models.Some(true),
			MatchesRegex: models.Some("^important"),
		}
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, delta))

		got, err := GetStarboard(db, sb.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Settings.Required)
		assert.True(t, got.Settings.SelfVote)
		require.NotNil(t, got.Settings.MatchesRegex)
		assert.Equal(t, "^important", *got.Settings.MatchesRegex)
		// Untouched fields keep their values.
		assert.Equal(t, []string{"⭐"}, got.Settings.UpvoteEmojis)
		assert.True(t, got.Settings.Enabled)
	})

	t.Run("cleared nullable field", func(t *testing.T) {
		delta := &models.SettingsDelta{MatchesRegex: models.Cleared[string]()}
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, delta))
		got, err := GetStarboard(db, sb.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Settings.MatchesRegex)
	})

	t.Run("cleared remove floor round-trips as nil", func(t *testing.T) {
		delta := &models.SettingsDelta{RequiredRemove: models.Cleared[int]()}
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, delta))
		got, err := GetStarboard(db, sb.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Settings.RequiredRemove)

		delta = &models.SettingsDelta{RequiredRemove: models.Some(2)}
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, delta))
		got, err = GetStarboard(db, sb.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Settings.RequiredRemove)
		assert.Equal(t, 2, *got.Settings.RequiredRemove)
	})

	t.Run("invalid merged result is rejected before writing", func(t *testing.T) {
		delta := &models.SettingsDelta{Required: models.Some(0)}
		err := UpdateStarboardSettings(db, sb.ID, delta)
		require.Error(t, err)

		got, err := GetStarboard(db, sb.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Settings.Required)
	})

	t.Run("emoji lists round-trip", func(t *testing.T) {
		delta := &models.SettingsDelta{
			UpvoteEmojis:   models.Some([]string{"⭐", "🌟"}),
			DownvoteEmojis: models.Some([]string{"👎"}),
		}
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, delta))
		got, err := GetStarboard(db, sb.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"⭐", "🌟"}, got.Settings.UpvoteEmojis)
		assert.Equal(t, []string{"👎"}, got.Settings.DownvoteEmojis)
	})

	t.Run("empty delta is a no-op", func(t *testing.T) {
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, &models.SettingsDelta{}))
	})

	t.Run("unknown starboard", func(t *testing.T) {
		err := UpdateStarboardSettings(db, 9999, &models.SettingsDelta{Required: models.Some(4)})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStarboardWebhook(t *testing.T) {
	db := testDB(t)
	sb, err := CreateStarboard(db, 1, "stars", 100)
	require.NoError(t, err)

	id := int64(5555)
	require.NoError(t, SetStarboardWebhook(db, sb.ID, &id))
	got, err := GetStarboard(db, sb.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WebhookID)
	assert.Equal(t, id, *got.WebhookID)

	require.NoError(t, UpdateStarboardSettings(db, sb.ID, &models.SettingsDelta{UseWebhook: models.Some(true)}))
	require.NoError(t, DisableStarboardWebhook(db, sb.ID))
	got, err = GetStarboard(db, sb.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WebhookID)
	assert.False(t, got.Settings.UseWebhook)
}

func TestStarboardPremiumLock(t *testing.T) {
	db := testDB(t)
	sb, err := CreateStarboard(db, 1, "stars", 100)
	require.NoError(t, err)

	require.NoError(t, SetStarboardPremiumLocked(db, sb.ID, true))
	got, err := GetStarboard(db, sb.ID)
	require.NoError(t, err)
	assert.True(t, got.PremiumLocked)

	assert.ErrorIs(t, SetStarboardPremiumLocked(db, 9999, true), ErrNotFound)
}

func TestOverrides(t *testing.T) {
	db := testDB(t)
	sb, err := CreateStarboard(db, 1, "stars", 100)
	require.NoError(t, err)

	ov, err := CreateOverride(db, 1, "threads", sb.ID)
	require.NoError(t, err)
	assert.Equal(t, sb.ID, ov.StarboardID)
	assert.Empty(t, ov.ChannelIDs)
	assert.True(t, ov.Delta.IsEmpty())

	t.Run("duplicate name", func(t *testing.T) {
		_, err := CreateOverride(db, 1, "threads", sb.ID)
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("missing starboard", func(t *testing.T) {
		_, err := CreateOverride(db, 1, "orphan", 9999)
		assert.ErrorIs(t, err, ErrForeignKey)
	})

	t.Run("channel set", func(t *testing.T) {
		require.NoError(t, SetOverrideChannels(db, ov.ID, []int64{10, 20}))
		got, err := GetOverride(db, ov.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 20}, got.ChannelIDs)

		tooMany := make([]int64, models.MaxChannelsPerOverride+1)
		assert.ErrorIs(t, SetOverrideChannels(db, ov.ID, tooMany), ErrLimit)
	})

	t.Run("delta updates merge field by field", func(t *testing.T) {
		require.NoError(t, UpdateOverrideDelta(db, ov.ID, &models.SettingsDelta{Required: models.Some(5)}))
		require.NoError(t, UpdateOverrideDelta(db, ov.ID, &models.SettingsDelta{PingAuthor: models.Some(true)}))

		got, err := GetOverride(db, ov.ID)
		require.NoError(t, err)
		require.True(t, got.Delta.Required.Set)
		assert.Equal(t, 5, got.Delta.Required.Val)
		require.True(t, got.Delta.PingAuthor.Set)
		assert.True(t, got.Delta.PingAuthor.Val)
	})

	t.Run("delta cannot push the merged settings invalid", func(t *testing.T) {
		err := UpdateOverrideDelta(db, ov.ID, &models.SettingsDelta{RequiredRemove: models.Some(10)})
		require.Error(t, err)

		got, err := GetOverride(db, ov.ID)
		require.NoError(t, err)
		assert.False(t, got.Delta.RequiredRemove.Set)
	})

	t.Run("reset clears the stored delta", func(t *testing.T) {
		require.NoError(t, ResetOverrideDelta(db, ov.ID))
		got, err := GetOverride(db, ov.ID)
		require.NoError(t, err)
		assert.True(t, got.Delta.IsEmpty())
	})

	t.Run("deleting the starboard cascades", func(t *testing.T) {
		require.NoError(t, DeleteStarboard(db, sb.ID))
		_, err := GetOverride(db, ov.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestExclusiveGroups(t *testing.T) {
	db := testDB(t)

	g, err := CreateExclusiveGroup(db, 1, "media")
	require.NoError(t, err)

	_, err = CreateExclusiveGroup(db, 1, "media")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := GetExclusiveGroup(db, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "media", got.Name)

	groups, err := ExclusiveGroupsByGuild(db, 1)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	t.Run("membership survives through settings", func(t *testing.T) {
		sb, err := CreateStarboard(db, 1, "stars", 100)
		require.NoError(t, err)
		delta := &models.SettingsDelta{
			ExclusiveGroup:         models.Some(g.ID),
			ExclusiveGroupPriority: models.Some(7),
		}
		require.NoError(t, UpdateStarboardSettings(db, sb.ID, delta))

		loaded, err := GetStarboard(db, sb.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded.Settings.ExclusiveGroup)
		assert.Equal(t, g.ID, *loaded.Settings.ExclusiveGroup)
		assert.Equal(t, 7, loaded.Settings.ExclusiveGroupPriority)

		// Deleting the group detaches members instead of deleting them.
		require.NoError(t, DeleteExclusiveGroup(db, g.ID))
		loaded, err = GetStarboard(db, sb.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded.Settings.ExclusiveGroup)
	})
}

func TestErrorMapping(t *testing.T) {
	db := testDB(t)
	_, err := CreateStarboard(db, 1, "stars", 100)
	require.NoError(t, err)

	_, err = CreateStarboard(db, 1, "stars", 101)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.False(t, errors.Is(err, ErrNotFound))
}
