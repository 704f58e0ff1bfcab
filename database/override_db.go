package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"starboard-bot/models"
)

func scanOverride(row rowScanner) (*models.Override, error) {
	var ov models.Override
	var channelIDs, delta string
	if err := row.Scan(&ov.ID, &ov.GuildID, &ov.Name, &ov.StarboardID, &channelIDs, &delta); err != nil {
		return nil, mapError(err)
	}
	var err error
	if ov.ChannelIDs, err = unmarshalInt64s(channelIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(delta), &ov.Delta); err != nil {
		return nil, fmt.Errorf("unmarshalling override %d delta: %w", ov.ID, err)
	}
	return &ov, nil
}

// CreateOverride inserts an empty override for a starboard.
func CreateOverride(db *sql.DB, guildID int64, name string, starboardID int64) (*models.Override, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM overrides WHERE guild_id = ?", guildID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting overrides: %w", err)
	}
	if count >= models.MaxOverridesPerGuild {
		return nil, limitError("overrides", models.MaxOverridesPerGuild)
	}

	res, err := db.Exec(
		"INSERT INTO overrides (guild_id, name, starboard_id) VALUES (?, ?, ?)",
		guildID, name, starboardID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetOverride(db, id)
}

// GetOverride loads one override by id.
func GetOverride(db *sql.DB, id int64) (*models.Override, error) {
	row := db.QueryRow("SELECT id, guild_id, name, starboard_id, channel_ids, delta FROM overrides WHERE id = ?", id)
	return scanOverride(row)
}

// OverridesForStarboard lists a starboard's overrides ordered by id.
func OverridesForStarboard(db *sql.DB, starboardID int64) ([]*models.Override, error) {
	rows, err := db.Query(
		"SELECT id, guild_id, name, starboard_id, channel_ids, delta FROM overrides WHERE starboard_id = ? ORDER BY id",
		starboardID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.Override
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, ov)
	}
	return overrides, rows.Err()
}

// SetOverrideChannels replaces the override's channel set, enforcing the
// per-override ceiling.
func SetOverrideChannels(db *sql.DB, id int64, channelIDs []int64) error {
	if len(channelIDs) > models.MaxChannelsPerOverride {
		return limitError("channels per override", models.MaxChannelsPerOverride)
	}
	s, err := marshalInt64s(channelIDs)
	if err != nil {
		return err
	}
	res, err := db.Exec("UPDATE overrides SET channel_ids = ? WHERE id = ?", s, id)
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

// UpdateOverrideDelta merges new delta fields into the stored delta. The
// merged parent settings are validated first so an override can never push a
// resolved config into an invalid state on its own channels.
func UpdateOverrideDelta(db *sql.DB, id int64, delta *models.SettingsDelta) error {
	ov, err := GetOverride(db, id)
	if err != nil {
		return err
	}
	sb, err := GetStarboard(db, ov.StarboardID)
	if err != nil {
		return err
	}

	merged := sb.Settings
	models.ApplyDelta(&merged, &ov.Delta)
	models.ApplyDelta(&merged, delta)
	if err := merged.Validate(); err != nil {
		return err
	}

	// Fold the new fields into the stored delta via the shared field table.
	b, err := json.Marshal(delta)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &ov.Delta); err != nil {
		return err
	}
	stored, err := json.Marshal(ov.Delta)
	if err != nil {
		return err
	}
	_, err = db.Exec("UPDATE overrides SET delta = ? WHERE id = ?", string(stored), id)
	return mapError(err)
}

// ResetOverrideDelta clears every field of the stored delta.
func ResetOverrideDelta(db *sql.DB, id int64) error {
	res, err := db.Exec("UPDATE overrides SET delta = '{}' WHERE id = ?", id)
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

// DeleteOverride removes one override.
func DeleteOverride(db *sql.DB, id int64) error {
	res, err := db.Exec("DELETE FROM overrides WHERE id = ?", id)
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
