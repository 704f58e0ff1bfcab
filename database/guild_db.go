package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Free-tier entity counts. Entities beyond these get premium-locked when a
// guild's premium runs out.
const (
	FreeStarboardsPerGuild       = 3
	FreeAutostarChannelsPerGuild = 3
)

// SetGuildPremiumUntil upserts a guild's premium expiry timestamp.
func SetGuildPremiumUntil(db *sql.DB, guildID int64, until *time.Time) error {
	var v any
	if until != nil {
		v = until.Unix()
	}
	_, err := db.Exec(
		`INSERT INTO guilds (guild_id, premium_until) VALUES (?, ?)
         ON CONFLICT (guild_id) DO UPDATE SET premium_until = excluded.premium_until`,
		guildID, v,
	)
	return mapError(err)
}

// GuildHasPremium reports whether the guild's premium is active at now.
func GuildHasPremium(db *sql.DB, guildID int64, now time.Time) (bool, error) {
	var until sql.NullInt64
	err := db.QueryRow("SELECT premium_until FROM guilds WHERE guild_id = ?", guildID).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return until.Valid && until.Int64 >= now.Unix(), nil
}

// ExpiredPremiumGuilds lists guilds whose premium ran out before now.
func ExpiredPremiumGuilds(db *sql.DB, now time.Time) ([]int64, error) {
	rows, err := db.Query("SELECT guild_id FROM guilds WHERE premium_until IS NOT NULL AND premium_until < ?", now.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying expired guilds: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LockExcessEntities premium-locks every starboard and autostar channel past
// the free ceiling, oldest first, and clears the guild's expiry marker. Runs
// in one transaction.
func LockExcessEntities(db *sql.DB, guildID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE starboards SET premium_locked = 1 WHERE id IN (
            SELECT id FROM starboards WHERE guild_id = ? ORDER BY id LIMIT -1 OFFSET ?
         )`, guildID, FreeStarboardsPerGuild,
	)
	if err != nil {
		return mapError(err)
	}
	_, err = tx.Exec(
		`UPDATE autostar_channels SET premium_locked = 1 WHERE id IN (
            SELECT id FROM autostar_channels WHERE guild_id = ? ORDER BY id LIMIT -1 OFFSET ?
         )`, guildID, FreeAutostarChannelsPerGuild,
	)
	if err != nil {
		return mapError(err)
	}
	if _, err := tx.Exec("UPDATE guilds SET premium_until = NULL WHERE guild_id = ?", guildID); err != nil {
		return mapError(err)
	}
	return tx.Commit()
}

// MovePremiumLock transfers a premium lock from one entity to another of the
// same kind in the same guild, atomically: from becomes locked, to becomes
// usable.
func MovePremiumLock(db *sql.DB, kind string, fromID, toID int64) error {
	var table string
	switch kind {
	case "starboard":
		table = "starboards"
	case "autostar":
		table = "autostar_channels"
	default:
		return fmt.Errorf("unknown premium lock kind %q", kind)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var fromGuild, toGuild int64
	var fromLocked, toLocked bool
	if err := tx.QueryRow("SELECT guild_id, premium_locked FROM "+table+" WHERE id = ?", toID).
		Scan(&toGuild, &toLocked); err != nil {
		return mapError(err)
	}
	if err := tx.QueryRow("SELECT guild_id, premium_locked FROM "+table+" WHERE id = ?", fromID).
		Scan(&fromGuild, &fromLocked); err != nil {
		return mapError(err)
	}
	if fromGuild != toGuild {
		return fmt.Errorf("cannot move a premium lock across guilds")
	}
	if !toLocked {
		return fmt.Errorf("%s %d is not premium locked", kind, toID)
	}
	if fromLocked {
		return fmt.Errorf("%s %d is already premium locked", kind, fromID)
	}

	if _, err := tx.Exec("UPDATE "+table+" SET premium_locked = 1 WHERE id = ?", fromID); err != nil {
		return mapError(err)
	}
	if _, err := tx.Exec("UPDATE "+table+" SET premium_locked = 0 WHERE id = ?", toID); err != nil {
		return mapError(err)
	}
	return tx.Commit()
}
