package models

import "time"

// RoomRole defines what a member may do inside a room.
type RoomRole string

const (
	// RoleSuperuser is held by the room creator; superusers decide bets
	// and act as the default mediator.
	RoleSuperuser RoomRole = "SUPERUSER"
	// RoleAdmin may decide bets but is not the room owner.
	RoleAdmin RoomRole = "ADMIN"
	RoleMember RoomRole = "MEMBER"
)

// CanDecideBets reports whether the role is allowed to approve or
// reject a pending bet.
func (r RoomRole) CanDecideBets() bool {
	return r == RoleSuperuser || r == RoleAdmin
}

// RoomMember links a user to a room with a role tag. A user joins a
// room at most once; the row is removed for good when the membership
// ends, so no soft delete here.
type RoomMember struct {
	ID        uint     `gorm:"primaryKey"`
	RoomID    uint     `gorm:"not null;uniqueIndex:idx_room_user"`
	UserID    uint     `gorm:"not null;uniqueIndex:idx_room_user"`
	Role      RoomRole `gorm:"size:20;not null;default:'MEMBER'"`
	CreatedAt time.Time

	Room Room `gorm:"foreignKey:RoomID"`
	User User `gorm:"foreignKey:UserID"`
}
