package models

import "gorm.io/gorm"

type NotificationType string

const (
	NotificationTypeBetResult NotificationType = "bet_result"
	NotificationTypeMessage   NotificationType = "message"
	NotificationTypeSystem    NotificationType = "system"
)

// Notification is a user-facing event, optionally tied to a bet
// (e.g. "your bet needs a decision"). Resolution happens outside this
// service, so only the flag is stored.
type Notification struct {
	gorm.Model
	UserID   uint             `gorm:"not null;index"`
	BetID    *uint
	Type     NotificationType `gorm:"size:50;not null"`
	Message  string           `gorm:"type:text;not null"`
	Resolved bool             `gorm:"not null;default:false"`

	Bet *Bet `gorm:"foreignKey:BetID"`
}
