package models

import "gorm.io/gorm"

// SystemUsername is the display name for messages without an author
// (welcome messages and other bot output).
const SystemUsername = "SodaBot"

// Message is a room-scoped chat message. A nil UserID marks a
// system-generated message.
type Message struct {
	gorm.Model
	RoomID  uint   `gorm:"not null;index"`
	UserID  *uint
	Content string `gorm:"type:text;not null"`

	User *User `gorm:"foreignKey:UserID"`
}
