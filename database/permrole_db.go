package database

import (
	"database/sql"
	"errors"
	"fmt"

	"starboard-bot/models"
)

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

// CreatePermRole inserts a permrole with every field unset (inherit).
func CreatePermRole(db *sql.DB, guildID, roleID int64) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM permroles WHERE guild_id = ?", guildID).Scan(&count); err != nil {
		return fmt.Errorf("counting permroles: %w", err)
	}
	if count >= models.MaxPermRolesPerGuild {
		return limitError("permroles", models.MaxPermRolesPerGuild)
	}
	_, err := db.Exec("INSERT INTO permroles (guild_id, role_id) VALUES (?, ?)", guildID, roleID)
	return mapError(err)
}

// UpdatePermRole overwrites the three tri-valued fields.
func UpdatePermRole(db *sql.DB, pr *models.PermRole) error {
	res, err := db.Exec(
		"UPDATE permroles SET give_votes = ?, receive_votes = ?, obtain_xp_roles = ? WHERE guild_id = ? AND role_id = ?",
		nullBool(pr.GiveVotes), nullBool(pr.ReceiveVotes), nullBool(pr.ObtainXPRoles), pr.GuildID, pr.RoleID,
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

// DeletePermRole removes a permrole and its per-starboard rows.
func DeletePermRole(db *sql.DB, guildID, roleID int64) error {
	res, err := db.Exec("DELETE FROM permroles WHERE guild_id = ? AND role_id = ?", guildID, roleID)
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

// PermRolesForRoles loads the guild's permroles restricted to the given role
// set. Order is up to the caller (it depends on live role positions).
func PermRolesForRoles(db *sql.DB, guildID int64, roleIDs []int64) ([]*models.PermRole, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	query := "SELECT guild_id, role_id, give_votes, receive_votes, obtain_xp_roles FROM permroles WHERE guild_id = ? AND role_id IN ("
	args := []any{guildID}
	for i, id := range roleIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying permroles: %w", err)
	}
	defer rows.Close()

	var prs []*models.PermRole
	for rows.Next() {
		var pr models.PermRole
		var give, receive, xp sql.NullBool
		if err := rows.Scan(&pr.GuildID, &pr.RoleID, &give, &receive, &xp); err != nil {
			return nil, err
		}
		pr.GiveVotes = scanBool(give)
		pr.ReceiveVotes = scanBool(receive)
		pr.ObtainXPRoles = scanBool(xp)
		prs = append(prs, &pr)
	}
	return prs, rows.Err()
}

// CreatePermRoleStarboard inserts a per-starboard permission row. A
// foreign-key failure means the role has no permrole yet.
func CreatePermRoleStarboard(db *sql.DB, guildID, roleID, starboardID int64) error {
	_, err := db.Exec(
		"INSERT INTO permrole_starboards (guild_id, role_id, starboard_id) VALUES (?, ?, ?)",
		guildID, roleID, starboardID,
	)
	err = mapError(err)
	if errors.Is(err, ErrForeignKey) {
		return fmt.Errorf("role %d is not a permrole: %w", roleID, err)
	}
	return err
}

// UpdatePermRoleStarboard overwrites give/receive for one starboard.
func UpdatePermRoleStarboard(db *sql.DB, prs *models.PermRoleStarboard) error {
	res, err := db.Exec(
		"UPDATE permrole_starboards SET give_votes = ?, receive_votes = ? WHERE role_id = ? AND starboard_id = ?",
		nullBool(prs.GiveVotes), nullBool(prs.ReceiveVotes), prs.RoleID, prs.StarboardID,
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

// PermRoleStarboardsForRoles loads the per-starboard rows for the given role
// set and starboard.
func PermRoleStarboardsForRoles(db *sql.DB, starboardID int64, roleIDs []int64) ([]*models.PermRoleStarboard, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	query := "SELECT role_id, starboard_id, give_votes, receive_votes FROM permrole_starboards WHERE starboard_id = ? AND role_id IN ("
	args := []any{starboardID}
	for i, id := range roleIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying permrole starboards: %w", err)
	}
	defer rows.Close()

	var prss []*models.PermRoleStarboard
	for rows.Next() {
		var prs models.PermRoleStarboard
		var give, receive sql.NullBool
		if err := rows.Scan(&prs.RoleID, &prs.StarboardID, &give, &receive); err != nil {
			return nil, err
		}
		prs.GiveVotes = scanBool(give)
		prs.ReceiveVotes = scanBool(receive)
		prss = append(prss, &prs)
	}
	return prss, rows.Err()
}
