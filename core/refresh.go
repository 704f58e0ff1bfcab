package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"starboard-bot/database"
	"starboard-bot/models"
)

const maxReconcileAttempts = 2

// refreshEnv is the per-original environment shared by every config's
// reconciliation: the original row, the fetched message (nil when gone), the
// author, and the source channel chain.
type refreshEnv struct {
	original *models.Original
	message  *discordgo.Message
	author   *discordgo.User
	member   *discordgo.Member

	authorRoles []int64
	authorIsBot bool
	chain       []int64
	force       bool
	premium     bool
}

// Refresh is the single entry point for bringing every destination post of
// one original in line with the current vote rows and settings. Per-original
// work is serialized by a keyed try-lock; a busy lock means another worker is
// already on it and this call returns immediately.
func (c *Context) Refresh(messageID int64, force bool) error {
	release, ok := c.refreshLocks.TryLock(messageID)
	if !ok {
		return nil
	}
	defer release()

	original, err := database.GetOriginal(c.DB, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading original %d: %w", messageID, err)
	}

	env, err := c.buildEnv(original, force)
	if err != nil {
		return err
	}

	configs, err := c.ResolveAll(original.GuildID, original.ChannelID)
	if err != nil {
		return err
	}
	lone, groups := partitionConfigs(configs)

	var wg sync.WaitGroup
	errCh := make(chan error, len(lone)+len(groups))
	for _, rc := range lone {
		wg.Add(1)
		go func(rc *ResolvedConfig) {
			defer wg.Done()
			if err := c.processConfig(env, rc, false); err != nil {
				errCh <- err
			}
		}(rc)
	}
	for _, grp := range groups {
		wg.Add(1)
		go func(grp []*ResolvedConfig) {
			defer wg.Done()
			if err := c.processGroup(env, grp); err != nil {
				errCh <- err
			}
		}(grp)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}

func (c *Context) buildEnv(original *models.Original, force bool) (*refreshEnv, error) {
	env := &refreshEnv{original: original, force: force}

	chain, err := c.Cache.QualifiedChannelIDs(c.API, original.GuildID, original.ChannelID)
	if err != nil {
		return nil, err
	}
	env.chain = chain

	env.premium, err = database.GuildHasPremium(c.DB, original.GuildID, time.Now())
	if err != nil {
		return nil, err
	}

	env.message, err = c.Cache.FogMessage(c.API, original.ChannelID, original.MessageID)
	if err != nil {
		return nil, err
	}
	env.author, err = c.Cache.FogUser(c.API, original.AuthorID)
	if err != nil {
		return nil, err
	}
	if env.author != nil {
		env.authorIsBot = env.author.Bot
	}
	env.member, err = c.Cache.FogMember(c.API, original.GuildID, original.AuthorID)
	if err != nil {
		return nil, err
	}
	if env.member != nil {
		for _, r := range env.member.Roles {
			id, err := ParseSnowflake(r)
			if err != nil {
				continue
			}
			env.authorRoles = append(env.authorRoles, id)
		}
	}
	return env, nil
}

// partitionConfigs splits resolved configs into lone ones and per-exclusive-
// group slices.
func partitionConfigs(configs []*ResolvedConfig) ([]*ResolvedConfig, [][]*ResolvedConfig) {
	var lone []*ResolvedConfig
	byGroup := make(map[int64][]*ResolvedConfig)
	var order []int64
	for _, rc := range configs {
		g := rc.Settings.ExclusiveGroup
		if g == nil {
			lone = append(lone, rc)
			continue
		}
		if _, seen := byGroup[*g]; !seen {
			order = append(order, *g)
		}
		byGroup[*g] = append(byGroup[*g], rc)
	}
	groups := make([][]*ResolvedConfig, 0, len(order))
	for _, g := range order {
		groups = append(groups, byGroup[g])
	}
	return lone, groups
}

// processGroup arbitrates one exclusive group serially: configs are visited
// by (priority desc, has-post desc); the first whose own decision would put
// or keep a post wins, every other config is reconciled as a loser.
func (c *Context) processGroup(env *refreshEnv, grp []*ResolvedConfig) error {
	type member struct {
		rc      *ResolvedConfig
		hasPost bool
	}
	members := make([]member, 0, len(grp))
	for _, rc := range grp {
		post, err := c.loadPost(env.original.MessageID, rc.Starboard.ID)
		if err != nil {
			return err
		}
		members = append(members, member{rc: rc, hasPost: post != nil})
	}
	sort.SliceStable(members, func(i, j int) bool {
		pi, pj := members[i].rc.Settings.ExclusiveGroupPriority, members[j].rc.Settings.ExclusiveGroupPriority
		if pi != pj {
			return pi > pj
		}
		return members[i].hasPost && !members[j].hasPost
	})

	haveWinner := false
	for _, m := range members {
		loser := haveWinner
		if !haveWinner {
			in, err := c.buildStateInput(env, m.rc, false)
			if err != nil {
				return err
			}
			action, _ := DecideAction(in)
			if action == ActionSend || action == ActionUpdate {
				haveWinner = true
			} else if action == ActionNone && in.HasPost {
				haveWinner = true
			} else {
				loser = true
			}
		}
		if err := c.processConfig(env, m.rc, loser); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) loadPost(messageID, starboardID int64) (*models.PublishedPost, error) {
	post, err := database.GetPost(c.DB, messageID, starboardID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading post (%d, %d): %w", messageID, starboardID, err)
	}
	return post, nil
}

func (c *Context) buildStateInput(env *refreshEnv, rc *ResolvedConfig, groupLoser bool) (*StateInput, error) {
	post, err := c.loadPost(env.original.MessageID, rc.Starboard.ID)
	if err != nil {
		return nil, err
	}
	points, err := database.PointCount(c.DB, env.original.MessageID, rc.Starboard.ID)
	if err != nil {
		return nil, fmt.Errorf("counting votes: %w", err)
	}
	forced := env.original.IsForcedTo(rc.Starboard.ID)

	destNSFW, err := c.Cache.FogChannelNSFW(c.API, rc.Starboard.GuildID, rc.Starboard.ChannelID)
	if err != nil {
		return nil, err
	}

	filterPass := true
	if !forced {
		filterPass, err = c.filterOutcome(rc, env.original, env.message, env.authorRoles, env.authorIsBot, env.chain)
		if err != nil {
			return nil, err
		}
	}

	return &StateInput{
		Config:          rc,
		Original:        env.original,
		MessageVisible:  env.message != nil,
		HasPost:         post != nil,
		Points:          points,
		FilterPass:      filterPass,
		DestinationNSFW: destNSFW,
		Forced:          forced,
		GroupLoser:      groupLoser,
	}, nil
}

// processConfig runs the state machine for one config and reconciles the
// destination, with a bounded retry when the destination copy turns out to
// have vanished externally.
func (c *Context) processConfig(env *refreshEnv, rc *ResolvedConfig, groupLoser bool) error {
	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		in, err := c.buildStateInput(env, rc, groupLoser)
		if err != nil {
			return err
		}
		action, kind := DecideAction(in)

		retry, err := c.reconcile(env, rc, in, action, kind)
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
	}
	return nil
}

// reconcile applies one decided action. The returned bool asks the caller to
// re-run the decision after a stale published-post row was dropped.
func (c *Context) reconcile(env *refreshEnv, rc *ResolvedConfig, in *StateInput, action Action, kind UpdateKind) (bool, error) {
	log := c.Log.With(
		zap.Int64("message", env.original.MessageID),
		zap.Int64("starboard", rc.Starboard.ID),
		zap.String("action", action.String()),
	)

	switch action {
	case ActionNone:
		return false, nil

	case ActionRemove:
		post, err := c.loadPost(env.original.MessageID, rc.Starboard.ID)
		if err != nil || post == nil {
			return false, err
		}
		c.Cache.AutoDeleted.Put(post.PostID, struct{}{})
		if err := c.deletePost(rc, post); err != nil {
			if IsForbidden(err) {
				log.Debug("delete forbidden, abandoning")
				return false, nil
			}
			if !IsNotFound(err) {
				return false, err
			}
		}
		if err := database.DeletePost(c.DB, post.MessageID, post.StarboardID); err != nil {
			return false, err
		}
		log.Debug("destination post removed")
		return false, nil

	case ActionUpdate:
		post, err := c.loadPost(env.original.MessageID, rc.Starboard.ID)
		if err != nil || post == nil {
			return false, err
		}
		if post.LastKnownPointCount == in.Points && !env.force {
			return false, nil
		}
		key := cooldownKey{ChannelID: rc.Starboard.ChannelID}
		if allowed, _ := c.editCooldown.Trigger(key); !allowed && !env.force {
			// Skipping an edit under cooldown is allowed; the next vote or
			// the catch-up sweep picks the change up.
			return false, nil
		}
		err = c.editPost(env, rc, post, kind, in.Points)
		if IsNotFound(err) {
			// The copy vanished externally. Drop the row and decide again.
			if derr := database.DeletePost(c.DB, post.MessageID, post.StarboardID); derr != nil {
				return false, derr
			}
			return true, nil
		}
		if IsForbidden(err) {
			log.Debug("edit forbidden, abandoning")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return false, database.SetPostPointCount(c.DB, post.MessageID, post.StarboardID, in.Points)

	case ActionSend:
		postID, err := c.sendPost(env, rc, in.Points)
		if err != nil {
			if IsForbidden(err) {
				log.Debug("send forbidden, abandoning")
				return false, nil
			}
			return false, err
		}
		err = database.CreatePost(c.DB, &models.PublishedPost{
			MessageID:           env.original.MessageID,
			StarboardID:         rc.Starboard.ID,
			PostID:              postID,
			LastKnownPointCount: in.Points,
		})
		if err != nil {
			return false, err
		}
		log.Info("destination post sent", zap.Int64("post", postID))
		c.autoreact(rc, postID)
		return false, nil
	}
	return false, nil
}

func (c *Context) renderInput(env *refreshEnv, points int) *RenderInput {
	return &RenderInput{
		Original: env.original,
		Message:  env.message,
		Author:   env.author,
		Member:   env.member,
		Points:   points,
		Frozen:   env.original.Frozen,
		Premium:  env.premium,
	}
}

// destChannelID is where a published post's message lives. Forum posts live
// in the thread the send created, whose id equals the message id.
func (c *Context) destChannelID(rc *ResolvedConfig, postID int64) (int64, error) {
	forum, err := c.Cache.IsChannelForum(c.API, rc.Starboard.GuildID, rc.Starboard.ChannelID)
	if err != nil {
		return 0, err
	}
	if forum {
		return postID, nil
	}
	return rc.Starboard.ChannelID, nil
}

// liveWebhook returns the starboard's webhook when webhook posting is
// configured and the webhook still exists. A stale webhook is disabled on
// the starboard row so later refreshes go straight to regular sends.
func (c *Context) liveWebhook(rc *ResolvedConfig) (*discordgo.Webhook, error) {
	if !rc.Settings.UseWebhook || rc.Starboard.WebhookID == nil {
		return nil, nil
	}
	wh, err := c.Cache.FogWebhook(c.API, *rc.Starboard.WebhookID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		c.Log.Warn("starboard webhook is gone, disabling",
			zap.Int64("starboard", rc.Starboard.ID),
			zap.Int64("webhook", *rc.Starboard.WebhookID))
		if err := database.DisableStarboardWebhook(c.DB, rc.Starboard.ID); err != nil {
			return nil, err
		}
		rc.Starboard.WebhookID = nil
		rc.Settings.UseWebhook = false
	}
	return wh, nil
}

func (c *Context) sendPost(env *refreshEnv, rc *ResolvedConfig, points int) (int64, error) {
	in := c.renderInput(env, points)
	rendered := c.RenderPost(rc, in)
	files := c.fetchUploads(rendered.Uploads)

	wh, err := c.liveWebhook(rc)
	if err != nil {
		return 0, err
	}
	if wh != nil {
		name, avatar := authorIdentity(&rc.Settings, in)
		msg, err := c.API.WebhookExecute(wh.ID, wh.Token, true, &discordgo.WebhookParams{
			Content:    rendered.Content,
			Embeds:     rendered.Embeds,
			Components: rendered.Components,
			Files:      files,
			Username:   name,
			AvatarURL:  avatar,
		})
		if err == nil {
			return ParseSnowflake(msg.ID)
		}
		if !IsNotFound(err) {
			return 0, err
		}
		// Stale despite the cache; invalidate and fall through.
		c.Cache.Webhooks.Delete(*rc.Starboard.WebhookID)
		if derr := database.DisableStarboardWebhook(c.DB, rc.Starboard.ID); derr != nil {
			return 0, derr
		}
		rc.Starboard.WebhookID = nil
		rc.Settings.UseWebhook = false
	}

	forum, err := c.Cache.IsChannelForum(c.API, rc.Starboard.GuildID, rc.Starboard.ChannelID)
	if err != nil {
		return 0, err
	}
	send := &discordgo.MessageSend{
		Content:    rendered.Content,
		Embeds:     rendered.Embeds,
		Components: rendered.Components,
		Files:      files,
	}
	if forum {
		thread, err := c.API.ForumThreadStartComplex(
			FormatSnowflake(rc.Starboard.ChannelID),
			&discordgo.ThreadStart{Name: ThreadName(in), AutoArchiveDuration: 1440},
			send,
		)
		if err != nil {
			return 0, err
		}
		return ParseSnowflake(thread.ID)
	}
	msg, err := c.API.ChannelMessageSendComplex(FormatSnowflake(rc.Starboard.ChannelID), send)
	if err != nil {
		return 0, err
	}
	return ParseSnowflake(msg.ID)
}

const maxUploadBytes = 8 << 20

// fetchUploads downloads the renderer's upload picks. Best-effort: anything
// unreachable or oversized is skipped; the attachment list's text link still
// points at the source file.
func (c *Context) fetchUploads(uploads []UploadAttachment) []*discordgo.File {
	var files []*discordgo.File
	for _, u := range uploads {
		resp, err := c.HTTP.Get(u.URL)
		if err != nil {
			c.Log.Debug("attachment download failed", zap.String("url", u.URL), zap.Error(err))
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes+1))
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK || len(body) > maxUploadBytes {
			c.Log.Debug("attachment skipped", zap.String("name", u.Filename))
			continue
		}
		files = append(files, &discordgo.File{
			Name:        u.Filename,
			ContentType: u.ContentType,
			Reader:      bytes.NewReader(body),
		})
	}
	return files
}

func (c *Context) editPost(env *refreshEnv, rc *ResolvedConfig, post *models.PublishedPost, kind UpdateKind, points int) error {
	in := c.renderInput(env, points)

	var content string
	var embeds []*discordgo.MessageEmbed
	var components []discordgo.MessageComponent
	if kind == UpdateFull {
		rendered := c.RenderPost(rc, in)
		content = rendered.Content
		embeds = rendered.Embeds
		components = rendered.Components
	} else {
		animated := false
		if id := CustomEmojiID(rc.Settings.DisplayEmoji); id != 0 {
			animated = c.Cache.IsEmojiAnimated(rc.Starboard.GuildID, id)
		}
		content = RenderContent(&rc.Settings, in, animated)
	}

	wh, err := c.liveWebhook(rc)
	if err != nil {
		return err
	}
	if wh != nil {
		edit := &discordgo.WebhookEdit{Content: &content}
		if kind == UpdateFull {
			edit.Embeds = &embeds
			edit.Components = &components
		}
		_, err := c.API.WebhookMessageEdit(wh.ID, wh.Token, FormatSnowflake(post.PostID), edit)
		return err
	}

	channelID, err := c.destChannelID(rc, post.PostID)
	if err != nil {
		return err
	}
	edit := &discordgo.MessageEdit{
		Channel: FormatSnowflake(channelID),
		ID:      FormatSnowflake(post.PostID),
		Content: &content,
	}
	if kind == UpdateFull {
		edit.Embeds = &embeds
		edit.Components = &components
	}
	_, err = c.API.ChannelMessageEditComplex(edit)
	return err
}

func (c *Context) deletePost(rc *ResolvedConfig, post *models.PublishedPost) error {
	wh, err := c.liveWebhook(rc)
	if err != nil {
		return err
	}
	if wh != nil {
		err := c.API.WebhookMessageDelete(wh.ID, wh.Token, FormatSnowflake(post.PostID))
		if err == nil || IsNotFound(err) {
			return err
		}
		// Fall through to a regular delete for posts predating the webhook.
	}
	channelID, err := c.destChannelID(rc, post.PostID)
	if err != nil {
		return err
	}
	return c.API.ChannelMessageDelete(FormatSnowflake(channelID), FormatSnowflake(post.PostID))
}

// autoreact seeds the configured vote emojis on a fresh destination post.
// Best-effort: failures are logged and ignored.
func (c *Context) autoreact(rc *ResolvedConfig, postID int64) {
	var emojis []string
	if rc.Settings.AutoreactUpvote {
		emojis = append(emojis, rc.Settings.UpvoteEmojis...)
	}
	if rc.Settings.AutoreactDownvote {
		emojis = append(emojis, rc.Settings.DownvoteEmojis...)
	}
	if len(emojis) == 0 {
		return
	}
	channelID, err := c.destChannelID(rc, postID)
	if err != nil {
		return
	}
	for _, e := range emojis {
		if err := c.API.MessageReactionAdd(FormatSnowflake(channelID), FormatSnowflake(postID), e); err != nil {
			c.Log.Debug("autoreact failed",
				zap.Int64("post", postID), zap.String("emoji", e), zap.Error(err))
		}
	}
}

// RefreshAsync runs Refresh on a tracked goroutine, logging any error.
func (c *Context) RefreshAsync(messageID int64, force bool) {
	done := c.Track()
	go func() {
		defer done()
		if err := c.Refresh(messageID, force); err != nil {
			c.Log.Error("refresh failed", zap.Int64("message", messageID), zap.Error(err))
		}
	}()
}

// CatchUp refreshes up to limit originals that have vote or post rows,
// spacing the work out. Used at startup when configured.
func (c *Context) CatchUp(limit int, pause time.Duration) error {
	ids, err := database.DirtyOriginals(c.DB, limit)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := c.Refresh(id, false); err != nil {
			c.Log.Warn("catch-up refresh failed", zap.Int64("message", id), zap.Error(err))
		}
		time.Sleep(pause)
	}
	return nil
}
