package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTICache(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		c := NewTTICache[int64, string](10, time.Hour)
		c.Put(1, "a")
		v, negative, ok := c.Get(1)
		require.True(t, ok)
		assert.False(t, negative)
		assert.Equal(t, "a", v)

		_, _, ok = c.Get(2)
		assert.False(t, ok)
	})

	t.Run("negative entries", func(t *testing.T) {
		c := NewTTICache[int64, string](10, time.Hour)
		c.PutNegative(1)
		_, negative, ok := c.Get(1)
		require.True(t, ok)
		assert.True(t, negative)
	})

	t.Run("entries expire", func(t *testing.T) {
		c := NewTTICache[int64, string](10, 5*time.Millisecond)
		c.Put(1, "a")
		time.Sleep(10 * time.Millisecond)
		_, _, ok := c.Get(1)
		assert.False(t, ok)
	})

	t.Run("size stays bounded", func(t *testing.T) {
		c := NewTTICache[int, int](16, time.Hour)
		for i := 0; i < 200; i++ {
			c.Put(i, i)
		}
		assert.LessOrEqual(t, c.Len(), 16)
	})

	t.Run("sweep drops idle entries without a get", func(t *testing.T) {
		c := NewTTICache[int64, string](10, 5*time.Millisecond)
		c.Put(1, "a")
		c.PutNegative(2)
		time.Sleep(10 * time.Millisecond)
		c.Put(3, "c")

		c.Sweep()
		assert.Equal(t, 1, c.Len())
		_, _, ok := c.Get(3)
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		c := NewTTICache[int64, string](10, time.Hour)
		c.Put(1, "a")
		c.Delete(1)
		_, _, ok := c.Get(1)
		assert.False(t, ok)
	})
}

func guildFixture() *discordgo.Guild {
	return &discordgo.Guild{
		ID: "1",
		Channels: []*discordgo.Channel{
			{ID: "10", Type: discordgo.ChannelTypeGuildText},
			{ID: "11", Type: discordgo.ChannelTypeGuildText, NSFW: true},
			{ID: "12", Type: discordgo.ChannelTypeGuildForum},
		},
		Threads: []*discordgo.Channel{
			{ID: "20", Type: discordgo.ChannelTypeGuildPublicThread, ParentID: "10"},
		},
		Roles: []*discordgo.Role{
			{ID: "100", Position: 1},
			{ID: "101", Position: 5},
		},
		Emojis: []*discordgo.Emoji{
			{ID: "500", Name: "kek", Animated: true},
		},
	}
}

func TestGuildStructuralCache(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.PutGuild(guildFixture()))

	t.Run("channels and threads", func(t *testing.T) {
		assert.True(t, c.GuildHasChannel(1, 10))
		assert.True(t, c.GuildHasChannel(1, 20))
		assert.False(t, c.GuildHasChannel(1, 99))
	})

	t.Run("role positions", func(t *testing.T) {
		assert.Equal(t, 1, c.RolePosition(1, 100))
		assert.Equal(t, 5, c.RolePosition(1, 101))
		assert.Equal(t, -1, c.RolePosition(1, 999))
		assert.Equal(t, -1, c.RolePosition(2, 100))
	})

	t.Run("emojis", func(t *testing.T) {
		assert.True(t, c.GuildEmojiExists(1, 500))
		assert.True(t, c.IsEmojiAnimated(1, 500))
		assert.False(t, c.GuildEmojiExists(1, 501))
	})

	t.Run("thread chain resolves without REST", func(t *testing.T) {
		chain, err := c.QualifiedChannelIDs(nil, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, []int64{20, 10}, chain)

		chain, err = c.QualifiedChannelIDs(nil, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{10}, chain)
	})

	t.Run("forum detection", func(t *testing.T) {
		forum, err := c.IsChannelForum(nil, 1, 12)
		require.NoError(t, err)
		assert.True(t, forum)

		forum, err = c.IsChannelForum(nil, 1, 10)
		require.NoError(t, err)
		assert.False(t, forum)
	})

	t.Run("nsfw detection", func(t *testing.T) {
		nsfw, err := c.FogChannelNSFW(nil, 1, 11)
		require.NoError(t, err)
		assert.True(t, nsfw)

		nsfw, err = c.FogChannelNSFW(nil, 1, 10)
		require.NoError(t, err)
		assert.False(t, nsfw)
	})

	t.Run("updates replace state", func(t *testing.T) {
		require.NoError(t, c.PutChannel(1, &discordgo.Channel{ID: "30", Type: discordgo.ChannelTypeGuildText}))
		assert.True(t, c.GuildHasChannel(1, 30))

		c.RemoveChannel(1, 30)
		assert.False(t, c.GuildHasChannel(1, 30))

		require.NoError(t, c.SetEmojis(1, nil))
		assert.False(t, c.GuildEmojiExists(1, 500))

		c.RemoveGuild(1)
		assert.False(t, c.GuildHasChannel(1, 10))
	})
}

func TestCacheEvictionSampling(t *testing.T) {
	// With TTI far in the future every eviction uses the approximate-LRU
	// sample; the cache must still hold the most recently touched keys often
	// enough to be useful. This only asserts the bound, not the policy.
	c := NewTTICache[string, int](8, time.Hour)
	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	assert.LessOrEqual(t, c.Len(), 8)
}
