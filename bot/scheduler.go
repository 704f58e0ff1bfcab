package bot

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var c *cron.Cron

// startScheduler starts the cron jobs.
func startScheduler(b *Bot) {
	b.Log.Info("initializing scheduler")
	c = cron.New()

	_, err := c.AddFunc("@hourly", func() {
		b.Ctx.PruneCooldowns()
		b.Ctx.Cache.SweepExpired()
	})
	if err != nil {
		b.Log.Fatal("could not set up cooldown prune job", zap.Error(err))
	}

	_, err = c.AddFunc("@every 30m", func() {
		if err := b.Ctx.PremiumExpirySweep(); err != nil {
			b.Log.Error("premium expiry sweep failed", zap.Error(err))
			b.Notifier.Error("scheduler", "premium expiry sweep", err.Error())
		}
	})
	if err != nil {
		b.Log.Fatal("could not set up premium expiry job", zap.Error(err))
	}

	c.Start()
	b.Log.Info("cron jobs scheduled")

	// Optionally walk recently-voted originals once on startup to absorb
	// reactions that happened while the bot was down.
	if viper.GetBool("bot.catchupOnStartup") {
		done := b.Ctx.Track()
		go func() {
			defer done()
			b.Log.Info("performing catch-up sweep on startup")
			limit := viper.GetInt("bot.catchupLimit")
			if err := b.Ctx.CatchUp(limit, 250*time.Millisecond); err != nil {
				b.Log.Error("catch-up sweep failed", zap.Error(err))
			}
		}()
	}
}

// stopScheduler stops the cron jobs.
func stopScheduler(b *Bot) {
	if c != nil {
		c.Stop()
		b.Log.Info("scheduler stopped")
	}
}
