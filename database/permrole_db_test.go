package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starboard-bot/models"
)

func bp(v bool) *bool { return &v }

func TestPermRoles(t *testing.T) {
	db := testDB(t)

	require.NoError(t, CreatePermRole(db, 1, 500))
	assert.ErrorIs(t, CreatePermRole(db, 1, 500), ErrDuplicate)

	t.Run("new rows inherit everything", func(t *testing.T) {
		prs, err := PermRolesForRoles(db, 1, []int64{500})
		require.NoError(t, err)
		require.Len(t, prs, 1)
		assert.Nil(t, prs[0].GiveVotes)
		assert.Nil(t, prs[0].ReceiveVotes)
		assert.Nil(t, prs[0].ObtainXPRoles)
	})

	t.Run("update overwrites the tri-valued fields", func(t *testing.T) {
		require.NoError(t, UpdatePermRole(db, &models.PermRole{
			GuildID:      1,
			RoleID:       500,
			GiveVotes:    bp(false),
			ReceiveVotes: bp(true),
		}))
		prs, err := PermRolesForRoles(db, 1, []int64{500})
		require.NoError(t, err)
		require.Len(t, prs, 1)
		require.NotNil(t, prs[0].GiveVotes)
		assert.False(t, *prs[0].GiveVotes)
		require.NotNil(t, prs[0].ReceiveVotes)
		assert.True(t, *prs[0].ReceiveVotes)
		assert.Nil(t, prs[0].ObtainXPRoles)

		assert.ErrorIs(t, UpdatePermRole(db, &models.PermRole{GuildID: 1, RoleID: 999}), ErrNotFound)
	})

	t.Run("lookup is restricted to the given roles", func(t *testing.T) {
		require.NoError(t, CreatePermRole(db, 1, 501))
		prs, err := PermRolesForRoles(db, 1, []int64{501, 777})
		require.NoError(t, err)
		require.Len(t, prs, 1)
		assert.Equal(t, int64(501), prs[0].RoleID)

		prs, err = PermRolesForRoles(db, 1, nil)
		require.NoError(t, err)
		assert.Empty(t, prs)
	})

	t.Run("per-starboard rows require a permrole", func(t *testing.T) {
		sb, err := CreateStarboard(db, 1, "stars", 100)
		require.NoError(t, err)

		err = CreatePermRoleStarboard(db, 1, 888, sb.ID)
		assert.ErrorIs(t, err, ErrForeignKey)

		require.NoError(t, CreatePermRoleStarboard(db, 1, 500, sb.ID))
		require.NoError(t, UpdatePermRoleStarboard(db, &models.PermRoleStarboard{
			RoleID:      500,
			StarboardID: sb.ID,
			GiveVotes:   bp(true),
		}))

		rows, err := PermRoleStarboardsForRoles(db, sb.ID, []int64{500})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].GiveVotes)
		assert.True(t, *rows[0].GiveVotes)
		assert.Nil(t, rows[0].ReceiveVotes)
	})

	t.Run("deleting the permrole cascades", func(t *testing.T) {
		sb, err := GetStarboardByName(db, 1, "stars")
		require.NoError(t, err)

		require.NoError(t, DeletePermRole(db, 1, 500))
		rows, err := PermRoleStarboardsForRoles(db, sb.ID, []int64{500})
		require.NoError(t, err)
		assert.Empty(t, rows)

		assert.ErrorIs(t, DeletePermRole(db, 1, 500), ErrNotFound)
	})
}

func TestPermRoleCeiling(t *testing.T) {
	db := testDB(t)
	for i := 0; i < models.MaxPermRolesPerGuild; i++ {
		require.NoError(t, CreatePermRole(db, 1, int64(1000+i)))
	}
	assert.ErrorIs(t, CreatePermRole(db, 1, 9999), ErrLimit)
}
