package database

import (
	"database/sql"
	"fmt"

	"starboard-bot/models"
)

// CreateExclusiveGroup inserts a group, enforcing the per-guild ceiling and
// (guild, name) uniqueness.
func CreateExclusiveGroup(db *sql.DB, guildID int64, name string) (*models.ExclusiveGroup, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM exclusive_groups WHERE guild_id = ?", guildID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting exclusive groups: %w", err)
	}
	if count >= models.MaxExclusiveGroupsPerGuild {
		return nil, limitError("exclusive groups", models.MaxExclusiveGroupsPerGuild)
	}

	res, err := db.Exec("INSERT INTO exclusive_groups (guild_id, name) VALUES (?, ?)", guildID, name)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.ExclusiveGroup{ID: id, GuildID: guildID, Name: name}, nil
}

// GetExclusiveGroup loads one group by id.
func GetExclusiveGroup(db *sql.DB, id int64) (*models.ExclusiveGroup, error) {
	var g models.ExclusiveGroup
	err := db.QueryRow("SELECT id, guild_id, name FROM exclusive_groups WHERE id = ?", id).
		Scan(&g.ID, &g.GuildID, &g.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return &g, nil
}

// ExclusiveGroupsByGuild lists a guild's exclusive groups.
func ExclusiveGroupsByGuild(db *sql.DB, guildID int64) ([]*models.ExclusiveGroup, error) {
	rows, err := db.Query("SELECT id, guild_id, name FROM exclusive_groups WHERE guild_id = ? ORDER BY id", guildID)
	if err != nil {
		return nil, fmt.Errorf("querying exclusive groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.ExclusiveGroup
	for rows.Next() {
		var g models.ExclusiveGroup
		if err := rows.Scan(&g.ID, &g.GuildID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// DeleteExclusiveGroup removes a group; member starboards fall back to no
// group via ON DELETE SET NULL.
func DeleteExclusiveGroup(db *sql.DB, id int64) error {
	res, err := db.Exec("DELETE FROM exclusive_groups WHERE id = ?", id)
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
