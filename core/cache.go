package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// TTICache is a bounded time-to-idle cache with negative entries, so a
// repeated miss does not stampede the chat API. Eviction is approximate LRU:
// when over capacity, a small sample of entries is taken and the
// least-recently-touched one is dropped.
type TTICache[K comparable, V any] struct {
	max int
	tti time.Duration

	mu      sync.Mutex
	entries map[K]*ttiEntry[V]
}

type ttiEntry[V any] struct {
	val      V
	negative bool
	touched  time.Time
}

// NewTTICache builds a cache bounded to max entries, each idle-expiring
// after tti.
func NewTTICache[K comparable, V any](max int, tti time.Duration) *TTICache[K, V] {
	return &TTICache[K, V]{
		max:     max,
		tti:     tti,
		entries: make(map[K]*ttiEntry[V]),
	}
}

// Get returns the cached value. negative=true means "known missing".
func (c *TTICache[K, V]) Get(key K) (v V, negative bool, ok bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		return v, false, false
	}
	if now.Sub(e.touched) > c.tti {
		delete(c.entries, key)
		return v, false, false
	}
	e.touched = now
	return e.val, e.negative, true
}

// Put stores a value.
func (c *TTICache[K, V]) Put(key K, v V) {
	c.put(key, &ttiEntry[V]{val: v, touched: time.Now()})
}

// PutNegative records "fetched and missing" for the key.
func (c *TTICache[K, V]) PutNegative(key K) {
	var zero V
	c.put(key, &ttiEntry[V]{val: zero, negative: true, touched: time.Now()})
}

// Sweep drops every entry idle past the TTI. Entries otherwise only leave on
// a Get or when the cache is over capacity, so tombstones that are never
// looked up again would linger without it.
func (c *TTICache[K, V]) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.Sub(e.touched) > c.tti {
			delete(c.entries, k)
		}
	}
}

// Delete removes the entry, if any.
func (c *TTICache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the live entry count.
func (c *TTICache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTICache[K, V]) put(key K, e *ttiEntry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	for len(c.entries) > c.max {
		c.evictOne()
	}
}

// evictOne samples map iteration order (randomized by the runtime) and drops
// the least-recently-touched entry of the sample.
func (c *TTICache[K, V]) evictOne() {
	const sample = 8
	var victim K
	var oldest time.Time
	n := 0
	for k, e := range c.entries {
		if n == 0 || e.touched.Before(oldest) {
			victim = k
			oldest = e.touched
		}
		if n++; n >= sample {
			break
		}
	}
	if n > 0 {
		delete(c.entries, victim)
	}
}

// channelInfo is the trimmed channel shape the structural cache keeps.
type channelInfo struct {
	ID       int64
	ParentID int64
	Type     discordgo.ChannelType
	NSFW     bool
}

func isThreadType(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}

// guildState is the per-guild structural cache, populated from gateway
// events and consulted on the hot path without REST round-trips.
type guildState struct {
	channels map[int64]channelInfo
	emojis   map[int64]bool // id -> animated
	roles    map[int64]int  // id -> position
}

func newGuildState() *guildState {
	return &guildState{
		channels: make(map[int64]channelInfo),
		emojis:   make(map[int64]bool),
		roles:    make(map[int64]int),
	}
}

type memberKey struct {
	GuildID int64
	UserID  int64
}

// Cache is the engine's sole query surface for chat objects: an unbounded
// guild-shaped structural cache plus bounded TTI caches with fog-of-war
// fetch-on-miss. It holds no REST handle; each fog call is passed one.
type Cache struct {
	mu     sync.RWMutex
	guilds map[int64]*guildState

	Messages    *TTICache[int64, *discordgo.Message]
	Users       *TTICache[int64, *discordgo.User]
	Members     *TTICache[memberKey, *discordgo.Member]
	Webhooks    *TTICache[int64, *discordgo.Webhook]
	AutoDeleted *TTICache[int64, struct{}]
}

// NewCache builds an empty cache with default bounds.
func NewCache() *Cache {
	return &Cache{
		guilds:      make(map[int64]*guildState),
		Messages:    NewTTICache[int64, *discordgo.Message](5000, 15*time.Minute),
		Users:       NewTTICache[int64, *discordgo.User](5000, 15*time.Minute),
		Members:     NewTTICache[memberKey, *discordgo.Member](5000, 15*time.Minute),
		Webhooks:    NewTTICache[int64, *discordgo.Webhook](500, time.Hour),
		AutoDeleted: NewTTICache[int64, struct{}](2000, time.Hour),
	}
}

// SweepExpired walks every TTI cache and drops idle entries. Run from the
// scheduler.
func (c *Cache) SweepExpired() {
	c.Messages.Sweep()
	c.Users.Sweep()
	c.Members.Sweep()
	c.Webhooks.Sweep()
	c.AutoDeleted.Sweep()
}

func channelInfoFrom(ch *discordgo.Channel) (channelInfo, error) {
	id, err := ParseSnowflake(ch.ID)
	if err != nil {
		return channelInfo{}, err
	}
	info := channelInfo{ID: id, Type: ch.Type, NSFW: ch.NSFW}
	if ch.ParentID != "" {
		if info.ParentID, err = ParseSnowflake(ch.ParentID); err != nil {
			return channelInfo{}, err
		}
	}
	return info, nil
}

// PutGuild replaces the structural state for a guild from a GuildCreate
// payload.
func (c *Cache) PutGuild(g *discordgo.Guild) error {
	guildID, err := ParseSnowflake(g.ID)
	if err != nil {
		return err
	}
	gs := newGuildState()
	for _, ch := range append(append([]*discordgo.Channel{}, g.Channels...), g.Threads...) {
		info, err := channelInfoFrom(ch)
		if err != nil {
			return err
		}
		gs.channels[info.ID] = info
	}
	for _, e := range g.Emojis {
		id, err := ParseSnowflake(e.ID)
		if err != nil {
			return err
		}
		gs.emojis[id] = e.Animated
	}
	for _, r := range g.Roles {
		id, err := ParseSnowflake(r.ID)
		if err != nil {
			return err
		}
		gs.roles[id] = r.Position
	}

	c.mu.Lock()
	c.guilds[guildID] = gs
	c.mu.Unlock()
	return nil
}

// RemoveGuild drops a guild's structural state.
func (c *Cache) RemoveGuild(guildID int64) {
	c.mu.Lock()
	delete(c.guilds, guildID)
	c.mu.Unlock()
}

// PutChannel records a channel or thread in its guild's state.
func (c *Cache) PutChannel(guildID int64, ch *discordgo.Channel) error {
	info, err := channelInfoFrom(ch)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	gs, ok := c.guilds[guildID]
	if !ok {
		gs = newGuildState()
		c.guilds[guildID] = gs
	}
	gs.channels[info.ID] = info
	return nil
}

// RemoveChannel drops a channel from its guild's state.
func (c *Cache) RemoveChannel(guildID, channelID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gs, ok := c.guilds[guildID]; ok {
		delete(gs.channels, channelID)
	}
}

// PutRole records a role's position.
func (c *Cache) PutRole(guildID int64, r *discordgo.Role) error {
	id, err := ParseSnowflake(r.ID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	gs, ok := c.guilds[guildID]
	if !ok {
		gs = newGuildState()
		c.guilds[guildID] = gs
	}
	gs.roles[id] = r.Position
	return nil
}

// RemoveRole drops a role.
func (c *Cache) RemoveRole(guildID, roleID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gs, ok := c.guilds[guildID]; ok {
		delete(gs.roles, roleID)
	}
}

// SetEmojis replaces a guild's emoji set.
func (c *Cache) SetEmojis(guildID int64, emojis []*discordgo.Emoji) error {
	next := make(map[int64]bool, len(emojis))
	for _, e := range emojis {
		id, err := ParseSnowflake(e.ID)
		if err != nil {
			return err
		}
		next[id] = e.Animated
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	gs, ok := c.guilds[guildID]
	if !ok {
		gs = newGuildState()
		c.guilds[guildID] = gs
	}
	gs.emojis = next
	return nil
}

// RolePosition returns a role's position in the guild, or -1.
func (c *Cache) RolePosition(guildID, roleID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gs, ok := c.guilds[guildID]; ok {
		if pos, ok := gs.roles[roleID]; ok {
			return pos
		}
	}
	return -1
}

// GuildEmojiExists reports whether the guild still has the custom emoji.
func (c *Cache) GuildEmojiExists(guildID, emojiID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gs, ok := c.guilds[guildID]; ok {
		_, exists := gs.emojis[emojiID]
		return exists
	}
	return false
}

// IsEmojiAnimated reports whether a guild emoji is animated.
func (c *Cache) IsEmojiAnimated(guildID, emojiID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gs, ok := c.guilds[guildID]; ok {
		return gs.emojis[emojiID]
	}
	return false
}

// GuildHasChannel reports whether a channel is known to the guild state.
func (c *Cache) GuildHasChannel(guildID, channelID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gs, ok := c.guilds[guildID]; ok {
		_, exists := gs.channels[channelID]
		return exists
	}
	return false
}

// fogChannel serves a channel lookup from the structural cache, fetching and
// inserting on miss. found=false means the channel is gone (404).
func (c *Cache) fogChannel(api ChatAPI, guildID, channelID int64) (channelInfo, bool, error) {
	c.mu.RLock()
	gs, ok := c.guilds[guildID]
	if ok {
		if info, exists := gs.channels[channelID]; exists {
			c.mu.RUnlock()
			return info, true, nil
		}
	}
	c.mu.RUnlock()

	ch, err := api.Channel(FormatSnowflake(channelID))
	if err != nil {
		if IsNotFound(err) {
			return channelInfo{}, false, nil
		}
		return channelInfo{}, false, fmt.Errorf("fetching channel %d: %w", channelID, err)
	}
	info, err := channelInfoFrom(ch)
	if err != nil {
		return channelInfo{}, false, err
	}

	c.mu.Lock()
	gs, ok = c.guilds[guildID]
	if !ok {
		gs = newGuildState()
		c.guilds[guildID] = gs
	}
	gs.channels[info.ID] = info
	c.mu.Unlock()
	return info, true, nil
}

// QualifiedChannelIDs walks from a channel up through its thread-parent
// chain, returning [self, ..., root].
func (c *Cache) QualifiedChannelIDs(api ChatAPI, guildID, channelID int64) ([]int64, error) {
	chain := []int64{channelID}
	current := channelID
	for i := 0; i < 8; i++ { // thread nesting is shallow; cap defends against cycles
		info, found, err := c.fogChannel(api, guildID, current)
		if err != nil {
			return nil, err
		}
		if !found || !isThreadType(info.Type) || info.ParentID == 0 {
			break
		}
		chain = append(chain, info.ParentID)
		current = info.ParentID
	}
	return chain, nil
}

// IsChannelForum reports whether the channel is a forum.
func (c *Cache) IsChannelForum(api ChatAPI, guildID, channelID int64) (bool, error) {
	info, found, err := c.fogChannel(api, guildID, channelID)
	if err != nil {
		return false, err
	}
	return found && info.Type == discordgo.ChannelTypeGuildForum, nil
}

// FogChannelNSFW reports whether the channel or any thread parent is NSFW.
func (c *Cache) FogChannelNSFW(api ChatAPI, guildID, channelID int64) (bool, error) {
	chain, err := c.QualifiedChannelIDs(api, guildID, channelID)
	if err != nil {
		return false, err
	}
	for _, id := range chain {
		info, found, err := c.fogChannel(api, guildID, id)
		if err != nil {
			return false, err
		}
		if found && info.NSFW {
			return true, nil
		}
	}
	return false, nil
}

// FogParentChannelID returns the thread's parent channel id, or the channel
// itself when it is not a thread.
func (c *Cache) FogParentChannelID(api ChatAPI, guildID, channelID int64) (int64, error) {
	info, found, err := c.fogChannel(api, guildID, channelID)
	if err != nil {
		return 0, err
	}
	if found && isThreadType(info.Type) && info.ParentID != 0 {
		return info.ParentID, nil
	}
	return channelID, nil
}

// FogMessage serves a message lookup cache-first. nil,nil means the message
// is known missing.
func (c *Cache) FogMessage(api ChatAPI, channelID, messageID int64) (*discordgo.Message, error) {
	if m, negative, ok := c.Messages.Get(messageID); ok {
		if negative {
			return nil, nil
		}
		return m, nil
	}
	m, err := api.ChannelMessage(FormatSnowflake(channelID), FormatSnowflake(messageID))
	if err != nil {
		if IsNotFound(err) {
			c.Messages.PutNegative(messageID)
			return nil, nil
		}
		return nil, fmt.Errorf("fetching message %d: %w", messageID, err)
	}
	c.Messages.Put(messageID, m)
	return m, nil
}

// FogUser serves a user lookup cache-first. nil,nil means known missing.
func (c *Cache) FogUser(api ChatAPI, userID int64) (*discordgo.User, error) {
	if u, negative, ok := c.Users.Get(userID); ok {
		if negative {
			return nil, nil
		}
		return u, nil
	}
	u, err := api.User(FormatSnowflake(userID))
	if err != nil {
		if IsNotFound(err) {
			c.Users.PutNegative(userID)
			return nil, nil
		}
		return nil, fmt.Errorf("fetching user %d: %w", userID, err)
	}
	c.Users.Put(userID, u)
	return u, nil
}

// FogMember serves a guild-member lookup cache-first. nil,nil means the user
// is not a member (or gone).
func (c *Cache) FogMember(api ChatAPI, guildID, userID int64) (*discordgo.Member, error) {
	key := memberKey{GuildID: guildID, UserID: userID}
	if m, negative, ok := c.Members.Get(key); ok {
		if negative {
			return nil, nil
		}
		return m, nil
	}
	m, err := api.GuildMember(FormatSnowflake(guildID), FormatSnowflake(userID))
	if err != nil {
		if IsNotFound(err) {
			c.Members.PutNegative(key)
			return nil, nil
		}
		return nil, fmt.Errorf("fetching member %d/%d: %w", guildID, userID, err)
	}
	c.Members.Put(key, m)
	return m, nil
}

// FogWebhook serves a webhook lookup cache-first. nil,nil means known
// missing; callers treat that as a stale webhook.
func (c *Cache) FogWebhook(api ChatAPI, webhookID int64) (*discordgo.Webhook, error) {
	if w, negative, ok := c.Webhooks.Get(webhookID); ok {
		if negative {
			return nil, nil
		}
		return w, nil
	}
	w, err := api.Webhook(FormatSnowflake(webhookID))
	if err != nil {
		if IsNotFound(err) {
			c.Webhooks.PutNegative(webhookID)
			return nil, nil
		}
		return nil, fmt.Errorf("fetching webhook %d: %w", webhookID, err)
	}
	c.Webhooks.Put(webhookID, w)
	return w, nil
}
