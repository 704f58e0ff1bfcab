package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"starboard-bot/models"
)

// CreateFilterGroup inserts a named filter group.
func CreateFilterGroup(db *sql.DB, guildID int64, name string) (*models.FilterGroup, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM filter_groups WHERE guild_id = ?", guildID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting filter groups: %w", err)
	}
	if count >= models.MaxFilterGroupsPerGuild {
		return nil, limitError("filter groups", models.MaxFilterGroupsPerGuild)
	}

	res, err := db.Exec(
		"INSERT INTO filter_groups (guild_id, name, position) VALUES (?, ?, ?)",
		guildID, name, count,
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.FilterGroup{ID: id, GuildID: guildID, Name: name, Position: count}, nil
}

// DeleteFilterGroup removes a group; filters, checks, and links cascade.
func DeleteFilterGroup(db *sql.DB, id int64) error {
	res, err := db.Exec("DELETE FROM filter_groups WHERE id = ?", id)
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

// CreateFilter appends a filter to a group.
func CreateFilter(db *sql.DB, groupID int64, instantPass, instantFail bool) (*models.Filter, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM filters WHERE group_id = ?", groupID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting filters: %w", err)
	}
	if count >= models.MaxFiltersPerGroup {
		return nil, limitError("filters per group", models.MaxFiltersPerGroup)
	}

	res, err := db.Exec(
		"INSERT INTO filters (group_id, position, instant_pass, instant_fail) VALUES (?, ?, ?, ?)",
		groupID, count, instantPass, instantFail,
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Filter{ID: id, GroupID: groupID, Position: count, InstantPass: instantPass, InstantFail: instantFail}, nil
}

// CreateFilterCheck appends a check to a filter. Regex predicates must
// compile; a bad pattern is the submitter's error, caught here.
func CreateFilterCheck(db *sql.DB, filterID int64, check *models.FilterCheck) (*models.FilterCheck, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM filter_checks WHERE filter_id = ?", filterID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting checks: %w", err)
	}
	if count >= models.MaxChecksPerFilter {
		return nil, limitError("checks per filter", models.MaxChecksPerFilter)
	}

	for _, p := range []*string{check.MatchesRegex, check.NotMatchesRegex} {
		if p == nil {
			continue
		}
		if _, err := regexp.Compile(*p); err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", *p, err)
		}
	}

	predicates, err := json.Marshal(check)
	if err != nil {
		return nil, fmt.Errorf("marshalling check predicates: %w", err)
	}
	res, err := db.Exec(
		"INSERT INTO filter_checks (filter_id, position, predicates) VALUES (?, ?, ?)",
		filterID, count, string(predicates),
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *check
	out.ID = id
	out.FilterID = filterID
	out.Position = count
	return &out, nil
}

// loadGroups fills filters and checks for the given groups.
func loadGroups(db *sql.DB, groups []*models.FilterGroup) error {
	for _, g := range groups {
		rows, err := db.Query(
			"SELECT id, group_id, position, instant_pass, instant_fail FROM filters WHERE group_id = ? ORDER BY position",
			g.ID,
		)
		if err != nil {
			return fmt.Errorf("querying filters: %w", err)
		}
		for rows.Next() {
			var f models.Filter
			if err := rows.Scan(&f.ID, &f.GroupID, &f.Position, &f.InstantPass, &f.InstantFail); err != nil {
				rows.Close()
				return err
			}
			g.Filters = append(g.Filters, &f)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, f := range g.Filters {
			crows, err := db.Query(
				"SELECT id, filter_id, position, predicates FROM filter_checks WHERE filter_id = ? ORDER BY position",
				f.ID,
			)
			if err != nil {
				return fmt.Errorf("querying checks: %w", err)
			}
			for crows.Next() {
				var c models.FilterCheck
				var predicates string
				if err := crows.Scan(&c.ID, &c.FilterID, &c.Position, &predicates); err != nil {
					crows.Close()
					return err
				}
				if err := json.Unmarshal([]byte(predicates), &c); err != nil {
					crows.Close()
					return fmt.Errorf("unmarshalling check %d predicates: %w", c.ID, err)
				}
				f.Checks = append(f.Checks, &c)
			}
			if err := crows.Err(); err != nil {
				crows.Close()
				return err
			}
			crows.Close()
		}
	}
	return nil
}

func groupsFromLink(db *sql.DB, query string, id int64) ([]*models.FilterGroup, error) {
	rows, err := db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("querying filter groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.FilterGroup
	for rows.Next() {
		var g models.FilterGroup
		if err := rows.Scan(&g.ID, &g.GuildID, &g.Name, &g.Position); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadGroups(db, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// FilterGroupsForStarboard loads the groups attached to a starboard, ordered,
// with filters and checks populated.
func FilterGroupsForStarboard(db *sql.DB, starboardID int64) ([]*models.FilterGroup, error) {
	return groupsFromLink(db,
		`SELECT g.id, g.guild_id, g.name, g.position FROM filter_groups g
         JOIN starboard_filter_groups l ON l.group_id = g.id
         WHERE l.starboard_id = ? ORDER BY g.position`, starboardID)
}

// FilterGroupsForAutostar loads the groups attached to an autostar channel.
func FilterGroupsForAutostar(db *sql.DB, autostarID int64) ([]*models.FilterGroup, error) {
	return groupsFromLink(db,
		`SELECT g.id, g.guild_id, g.name, g.position FROM filter_groups g
         JOIN autostar_filter_groups l ON l.group_id = g.id
         WHERE l.autostar_id = ? ORDER BY g.position`, autostarID)
}

// LinkStarboardFilterGroup attaches a group to a starboard.
func LinkStarboardFilterGroup(db *sql.DB, starboardID, groupID int64) error {
	_, err := db.Exec("INSERT INTO starboard_filter_groups (starboard_id, group_id) VALUES (?, ?)", starboardID, groupID)
	return mapError(err)
}

// UnlinkStarboardFilterGroup detaches a group from a starboard. Idempotent.
func UnlinkStarboardFilterGroup(db *sql.DB, starboardID, groupID int64) error {
	_, err := db.Exec("DELETE FROM starboard_filter_groups WHERE starboard_id = ? AND group_id = ?", starboardID, groupID)
	return mapError(err)
}

// LinkAutostarFilterGroup attaches a group to an autostar channel.
func LinkAutostarFilterGroup(db *sql.DB, autostarID, groupID int64) error {
	_, err := db.Exec("INSERT INTO autostar_filter_groups (autostar_id, group_id) VALUES (?, ?)", autostarID, groupID)
	return mapError(err)
}
