package database

import (
	"database/sql"
	"fmt"

	"starboard-bot/models"
)

func scanAutostar(row rowScanner) (*models.AutostarChannel, error) {
	var ac models.AutostarChannel
	var emojis string
	var minChars, maxChars sql.NullInt64
	err := row.Scan(&ac.ID, &ac.GuildID, &ac.ChannelID, &emojis, &minChars, &maxChars, &ac.RequireImage, &ac.DeleteInvalid)
	if err != nil {
		return nil, mapError(err)
	}
	if ac.Emojis, err = unmarshalStrings(emojis); err != nil {
		return nil, err
	}
	if minChars.Valid {
		v := int(minChars.Int64)
		ac.MinChars = &v
	}
	if maxChars.Valid {
		v := int(maxChars.Int64)
		ac.MaxChars = &v
	}
	return &ac, nil
}

// CreateAutostarChannel inserts an autostar rule for one channel.
func CreateAutostarChannel(db *sql.DB, guildID, channelID int64) (*models.AutostarChannel, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM autostar_channels WHERE guild_id = ?", guildID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting autostar channels: %w", err)
	}
	if count >= models.MaxAutostarChannelsPerGuild {
		return nil, limitError("autostar channels", models.MaxAutostarChannelsPerGuild)
	}

	res, err := db.Exec("INSERT INTO autostar_channels (guild_id, channel_id) VALUES (?, ?)", guildID, channelID)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	row := db.QueryRow(
		"SELECT id, guild_id, channel_id, emojis, min_chars, max_chars, require_image, delete_invalid FROM autostar_channels WHERE id = ?",
		id,
	)
	return scanAutostar(row)
}

// AutostarChannelsFor lists the autostar rules that apply to one channel.
func AutostarChannelsFor(db *sql.DB, guildID, channelID int64) ([]*models.AutostarChannel, error) {
	rows, err := db.Query(
		`SELECT id, guild_id, channel_id, emojis, min_chars, max_chars, require_image, delete_invalid
         FROM autostar_channels WHERE guild_id = ? AND channel_id = ? AND premium_locked = 0`,
		guildID, channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying autostar channels: %w", err)
	}
	defer rows.Close()

	var acs []*models.AutostarChannel
	for rows.Next() {
		ac, err := scanAutostar(rows)
		if err != nil {
			return nil, err
		}
		acs = append(acs, ac)
	}
	return acs, rows.Err()
}

// UpdateAutostarChannel overwrites the rule fields.
func UpdateAutostarChannel(db *sql.DB, ac *models.AutostarChannel) error {
	emojis, err := marshalStrings(ac.Emojis)
	if err != nil {
		return err
	}
	var minChars, maxChars any
	if ac.MinChars != nil {
		minChars = *ac.MinChars
	}
	if ac.MaxChars != nil {
		maxChars = *ac.MaxChars
	}
	res, err := db.Exec(
		`UPDATE autostar_channels SET emojis = ?, min_chars = ?, max_chars = ?, require_image = ?, delete_invalid = ?
         WHERE id = ?`,
		emojis, minChars, maxChars, ac.RequireImage, ac.DeleteInvalid, ac.ID,
	)
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

// DeleteAutostarChannel removes one autostar rule.
func DeleteAutostarChannel(db *sql.DB, id int64) error {
	res, err := db.Exec("DELETE FROM autostar_channels WHERE id = ?", id)
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
