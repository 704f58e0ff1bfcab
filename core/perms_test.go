package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starboard-bot/database"
	"starboard-bot/models"
)

func denyAllow() (*bool, *bool) {
	deny, allow := false, true
	return &deny, &allow
}

func TestEffectivePermissions(t *testing.T) {
	t.Run("no permroles means everything is allowed", func(t *testing.T) {
		e := newEngine(t)
		perms, err := e.ctx.EffectivePermissions(1, []int64{100, 101}, nil)
		require.NoError(t, err)
		assert.True(t, perms.GiveVotes)
		assert.True(t, perms.ReceiveVotes)
		assert.True(t, perms.ObtainXPRoles)
	})

	t.Run("a deny on one of the member's roles applies", func(t *testing.T) {
		e := newEngine(t)
		deny, _ := denyAllow()
		require.NoError(t, database.CreatePermRole(e.db, 1, 100))
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 100, GiveVotes: deny,
		}))

		perms, err := e.ctx.EffectivePermissions(1, []int64{100, 101}, nil)
		require.NoError(t, err)
		assert.False(t, perms.GiveVotes)
		assert.True(t, perms.ReceiveVotes, "unset fields inherit the default")

		// A permrole on a role the member lacks does nothing.
		perms, err = e.ctx.EffectivePermissions(1, []int64{101}, nil)
		require.NoError(t, err)
		assert.True(t, perms.GiveVotes)
	})

	t.Run("the higher role's explicit value wins", func(t *testing.T) {
		e := newEngine(t)
		deny, allow := denyAllow()
		// Role 100 has position 1, role 101 position 5.
		require.NoError(t, database.CreatePermRole(e.db, 1, 100))
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 100, GiveVotes: deny,
		}))
		require.NoError(t, database.CreatePermRole(e.db, 1, 101))
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 101, GiveVotes: allow,
		}))

		perms, err := e.ctx.EffectivePermissions(1, []int64{100, 101}, nil)
		require.NoError(t, err)
		assert.True(t, perms.GiveVotes)

		// Flipping the values flips the outcome.
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 100, GiveVotes: allow,
		}))
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 101, GiveVotes: deny,
		}))
		perms, err = e.ctx.EffectivePermissions(1, []int64{100, 101}, nil)
		require.NoError(t, err)
		assert.False(t, perms.GiveVotes)
	})

	t.Run("an unset higher role leaves the lower role's value standing", func(t *testing.T) {
		e := newEngine(t)
		deny, _ := denyAllow()
		require.NoError(t, database.CreatePermRole(e.db, 1, 100))
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 100, ReceiveVotes: deny,
		}))
		require.NoError(t, database.CreatePermRole(e.db, 1, 101))

		perms, err := e.ctx.EffectivePermissions(1, []int64{100, 101}, nil)
		require.NoError(t, err)
		assert.False(t, perms.ReceiveVotes)
	})

	t.Run("starboard overrides layer over guild permroles", func(t *testing.T) {
		e := newEngine(t)
		sb, err := database.CreateStarboard(e.db, 1, "stars", 9)
		require.NoError(t, err)

		deny, allow := denyAllow()
		require.NoError(t, database.CreatePermRole(e.db, 1, 100))
		require.NoError(t, database.UpdatePermRole(e.db, &models.PermRole{
			GuildID: 1, RoleID: 100, GiveVotes: deny,
		}))
		require.NoError(t, database.CreatePermRoleStarboard(e.db, 1, 100, sb.ID))
		require.NoError(t, database.UpdatePermRoleStarboard(e.db, &models.PermRoleStarboard{
			RoleID: 100, StarboardID: sb.ID, GiveVotes: allow,
		}))

		// Without the starboard scope the guild deny holds.
		perms, err := e.ctx.EffectivePermissions(1, []int64{100}, nil)
		require.NoError(t, err)
		assert.False(t, perms.GiveVotes)

		// Within the starboard the override wins.
		perms, err = e.ctx.EffectivePermissions(1, []int64{100}, &sb.ID)
		require.NoError(t, err)
		assert.True(t, perms.GiveVotes)
	})
}
