package database

import (
	"database/sql"
	"fmt"
	"strings"

	"starboard-bot/models"
)

const starboardColumns = `id, guild_id, name, channel_id, webhook_id, premium_locked,
    display_emoji, ping_author, use_server_profile, extra_embeds, use_webhook,
    color, go_to_message, attachments_list, replied_to,
    required, required_remove, upvote_emojis, downvote_emojis, self_vote, allow_bots,
    require_image, older_than, newer_than, matches_regex, not_matches_regex,
    enabled, autoreact_upvote, autoreact_downvote, remove_invalid_reactions,
    link_deletes, link_edits, on_delete, cooldown_enabled, cooldown_capacity,
    cooldown_period, exclusive_group, exclusive_group_priority`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStarboard(row rowScanner) (*models.Starboard, error) {
	var sb models.Starboard
	var webhookID, exclusiveGroup, requiredRemove sql.NullInt64
	var matchesRegex, notMatchesRegex sql.NullString
	var upvoteEmojis, downvoteEmojis string
	var onDelete, goToMessage int

	err := row.Scan(
		&sb.ID, &sb.GuildID, &sb.Name, &sb.ChannelID, &webhookID, &sb.PremiumLocked,
		&sb.Settings.DisplayEmoji, &sb.Settings.PingAuthor, &sb.Settings.UseServerProfile,
		&sb.Settings.ExtraEmbeds, &sb.Settings.UseWebhook,
		&sb.Settings.Color, &goToMessage, &sb.Settings.AttachmentsList, &sb.Settings.RepliedTo,
		&sb.Settings.Required, &requiredRemove, &upvoteEmojis, &downvoteEmojis,
		&sb.Settings.SelfVote, &sb.Settings.AllowBots, &sb.Settings.RequireImage,
		&sb.Settings.OlderThan, &sb.Settings.NewerThan, &matchesRegex, &notMatchesRegex,
		&sb.Settings.Enabled, &sb.Settings.AutoreactUpvote, &sb.Settings.AutoreactDownvote,
		&sb.Settings.RemoveInvalidReactions, &sb.Settings.LinkDeletes, &sb.Settings.LinkEdits,
		&onDelete, &sb.Settings.CooldownEnabled, &sb.Settings.CooldownCapacity,
		&sb.Settings.CooldownPeriod, &exclusiveGroup, &sb.Settings.ExclusiveGroupPriority,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if webhookID.Valid {
		sb.WebhookID = &webhookID.Int64
	}
	if exclusiveGroup.Valid {
		sb.Settings.ExclusiveGroup = &exclusiveGroup.Int64
	}
	if requiredRemove.Valid {
		v := int(requiredRemove.Int64)
		sb.Settings.RequiredRemove = &v
	}
	if matchesRegex.Valid {
		sb.Settings.MatchesRegex = &matchesRegex.String
	}
	if notMatchesRegex.Valid {
		sb.Settings.NotMatchesRegex = &notMatchesRegex.String
	}
	if sb.Settings.UpvoteEmojis, err = unmarshalStrings(upvoteEmojis); err != nil {
		return nil, err
	}
	if sb.Settings.DownvoteEmojis, err = unmarshalStrings(downvoteEmojis); err != nil {
		return nil, err
	}
	// Unknown enum values are rejected here, not at use time.
	if sb.Settings.OnDelete, err = models.ParseOnDelete(onDelete); err != nil {
		return nil, fmt.Errorf("starboard %d: %w", sb.ID, err)
	}
	if sb.Settings.GoToMessage, err = models.ParseGoToMessage(goToMessage); err != nil {
		return nil, fmt.Errorf("starboard %d: %w", sb.ID, err)
	}
	return &sb, nil
}

// CreateStarboard inserts a starboard with default settings, enforcing the
// per-guild ceiling and (guild, name) uniqueness.
func CreateStarboard(db *sql.DB, guildID int64, name string, channelID int64) (*models.Starboard, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM starboards WHERE guild_id = ?", guildID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting starboards: %w", err)
	}
	if count >= models.MaxStarboardsPerGuild {
		return nil, limitError("starboards", models.MaxStarboardsPerGuild)
	}

	res, err := db.Exec(
		"INSERT INTO starboards (guild_id, name, channel_id) VALUES (?, ?, ?)",
		guildID, name, channelID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetStarboard(db, id)
}

// GetStarboard loads one starboard by id.
func GetStarboard(db *sql.DB, id int64) (*models.Starboard, error) {
	row := db.QueryRow("SELECT "+starboardColumns+" FROM starboards WHERE id = ?", id)
	return scanStarboard(row)
}

// GetStarboardByName loads a starboard by its (guild, name) key.
func GetStarboardByName(db *sql.DB, guildID int64, name string) (*models.Starboard, error) {
	row := db.QueryRow("SELECT "+starboardColumns+" FROM starboards WHERE guild_id = ? AND name = ?", guildID, name)
	return scanStarboard(row)
}

// StarboardsByGuild lists every starboard in a guild, ordered by id.
func StarboardsByGuild(db *sql.DB, guildID int64) ([]*models.Starboard, error) {
	rows, err := db.Query("SELECT "+starboardColumns+" FROM starboards WHERE guild_id = ? ORDER BY id", guildID)
	if err != nil {
		return nil, fmt.Errorf("querying starboards: %w", err)
	}
	defer rows.Close()

	var starboards []*models.Starboard
	for rows.Next() {
		sb, err := scanStarboard(rows)
		if err != nil {
			return nil, err
		}
		starboards = append(starboards, sb)
	}
	return starboards, rows.Err()
}

// UpdateStarboardSettings applies a sparse settings delta. The merged result
// is validated before any column is written.
func UpdateStarboardSettings(db *sql.DB, id int64, delta *models.SettingsDelta) error {
	sb, err := GetStarboard(db, id)
	if err != nil {
		return err
	}
	merged := sb.Settings
	models.ApplyDelta(&merged, delta)
	if err := merged.Validate(); err != nil {
		return err
	}

	cols, args, err := models.DeltaColumns(delta)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}
	var sets []string
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	args = append(args, id)
	_, err = db.Exec("UPDATE starboards SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return mapError(err)
}

// SetStarboardWebhook stores or clears the starboard's webhook id.
func SetStarboardWebhook(db *sql.DB, id int64, webhookID *int64) error {
	var v any
	if webhookID != nil {
		v = *webhookID
	}
	_, err := db.Exec("UPDATE starboards SET webhook_id = ? WHERE id = ?", v, id)
	return mapError(err)
}

// DisableStarboardWebhook clears the webhook id and turns use_webhook off in
// one statement. Called when the webhook turns out to be gone (404).
func DisableStarboardWebhook(db *sql.DB, id int64) error {
	_, err := db.Exec("UPDATE starboards SET webhook_id = NULL, use_webhook = 0 WHERE id = ?", id)
	return mapError(err)
}

// SetStarboardPremiumLocked flips the premium lock on one starboard.
func SetStarboardPremiumLocked(db *sql.DB, id int64, locked bool) error {
	res, err := db.Exec("UPDATE starboards SET premium_locked = ? WHERE id = ?", locked, id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStarboard removes a starboard; overrides, votes, published posts, and
// link rows cascade.
func DeleteStarboard(db *sql.DB, id int64) error {
	res, err := db.Exec("DELETE FROM starboards WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
