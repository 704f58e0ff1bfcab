package models

// PermRole is a role-keyed permission row. A nil field means "inherit".
type PermRole struct {
	GuildID       int64
	RoleID        int64
	GiveVotes     *bool
	ReceiveVotes  *bool
	ObtainXPRoles *bool
}

// PermRoleStarboard overrides give/receive for one starboard.
type PermRoleStarboard struct {
	RoleID       int64
	StarboardID  int64
	GiveVotes    *bool
	ReceiveVotes *bool
}
