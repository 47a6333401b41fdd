package models

import "gorm.io/gorm"

type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "OPEN"
	RoomStatusClosed RoomStatus = "CLOSED"
)

// Room is a chat-and-wagering space. A private room carries a unique
// join token; the token is never null once the room exists, which is
// what makes it usable as a join capability.
type Room struct {
	gorm.Model
	CreatorID   uint       `gorm:"not null;index"`
	Name        string     `gorm:"size:255;not null"`
	Description string
	Status      RoomStatus `gorm:"size:20;not null;default:'OPEN'"`
	IsPublic    bool       `gorm:"not null"`
	Token       *string    `gorm:"size:64;unique"` // nil for public rooms

	Creator  User         `gorm:"foreignKey:CreatorID"`
	Members  []RoomMember `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	Messages []Message    `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	Bets     []Bet        `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}
