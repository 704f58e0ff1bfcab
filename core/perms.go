package core

import (
	"fmt"
	"sort"

	"starboard-bot/database"
)

// Permissions is the effective allow/deny triple for a member's role set.
type Permissions struct {
	GiveVotes     bool
	ReceiveVotes  bool
	ObtainXPRoles bool
}

// EffectivePermissions folds a guild's permroles (restricted to the member's
// roles, ordered by role position ascending so higher roles win) into the
// default all-allowed triple, then applies starboard-scoped overrides in the
// same order when a starboard is given.
func (c *Context) EffectivePermissions(guildID int64, roleIDs []int64, starboardID *int64) (Permissions, error) {
	perms := Permissions{GiveVotes: true, ReceiveVotes: true, ObtainXPRoles: true}

	permroles, err := database.PermRolesForRoles(c.DB, guildID, roleIDs)
	if err != nil {
		return perms, fmt.Errorf("loading permroles: %w", err)
	}
	sort.SliceStable(permroles, func(i, j int) bool {
		return c.Cache.RolePosition(guildID, permroles[i].RoleID) < c.Cache.RolePosition(guildID, permroles[j].RoleID)
	})
	for _, pr := range permroles {
		if pr.GiveVotes != nil {
			perms.GiveVotes = *pr.GiveVotes
		}
		if pr.ReceiveVotes != nil {
			perms.ReceiveVotes = *pr.ReceiveVotes
		}
		if pr.ObtainXPRoles != nil {
			perms.ObtainXPRoles = *pr.ObtainXPRoles
		}
	}

	if starboardID == nil {
		return perms, nil
	}

	overrides, err := database.PermRoleStarboardsForRoles(c.DB, *starboardID, roleIDs)
	if err != nil {
		return perms, fmt.Errorf("loading permrole starboard overrides: %w", err)
	}
	sort.SliceStable(overrides, func(i, j int) bool {
		return c.Cache.RolePosition(guildID, overrides[i].RoleID) < c.Cache.RolePosition(guildID, overrides[j].RoleID)
	})
	for _, prs := range overrides {
		if prs.GiveVotes != nil {
			perms.GiveVotes = *prs.GiveVotes
		}
		if prs.ReceiveVotes != nil {
			perms.ReceiveVotes = *prs.ReceiveVotes
		}
	}
	return perms, nil
}
