package core

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// cooldownKey identifies one jumping-window slot. Which parts are populated
// depends on the limiter.
type cooldownKey struct {
	GuildID     int64
	ChannelID   int64
	StarboardID int64
	UserID      int64
}

// Context carries everything an engine operation needs: store, caches,
// cooldowns, locks, REST handle, and logger. It is built once at startup and
// passed explicitly; there are no package-level singletons.
type Context struct {
	DB    *sql.DB
	API   ChatAPI
	Cache *Cache
	Log   *zap.Logger

	// HTTP fetches attachment bodies for re-upload; not used for chat calls.
	HTTP *http.Client

	refreshLocks *KeyedMutex[int64]
	recountLocks *KeyedMutex[int64]

	// voteCooldown throttles vote ingestion per (starboard, channel) using
	// each starboard's own capacity/period settings.
	voteCooldown *Cooldown[cooldownKey]
	// editCooldown throttles destination edits per channel.
	editCooldown *Cooldown[cooldownKey]
	// recountCooldown throttles admin recounts per guild.
	recountCooldown *Cooldown[cooldownKey]

	inflight sync.WaitGroup
}

// NewContext wires a Context. The API handle is typically a
// *discordgo.Session.
func NewContext(db *sql.DB, api ChatAPI, cache *Cache, log *zap.Logger) *Context {
	return &Context{
		DB:              db,
		API:             api,
		Cache:           cache,
		Log:             log,
		HTTP:            &http.Client{Timeout: 30 * time.Second},
		refreshLocks:    NewKeyedMutex[int64](),
		recountLocks:    NewKeyedMutex[int64](),
		voteCooldown:    NewCooldown[cooldownKey](5, 6*time.Second),
		editCooldown:    NewCooldown[cooldownKey](2, 10*time.Second),
		recountCooldown: NewCooldown[cooldownKey](1, time.Minute),
	}
}

// Track registers a background task for graceful drain.
func (c *Context) Track() func() {
	c.inflight.Add(1)
	return c.inflight.Done
}

// Drain waits for in-flight tasks, up to the timeout.
func (c *Context) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// PruneCooldowns drops expired rate-limit windows. Run from the scheduler.
func (c *Context) PruneCooldowns() {
	c.voteCooldown.Prune()
	c.editCooldown.Prune()
	c.recountCooldown.Prune()
}
