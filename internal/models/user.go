package models

import "gorm.io/gorm"

// DefaultStartingCoins is the balance every new account starts with.
const DefaultStartingCoins = 1000

// User represents a registered account. Coins is the in-app currency
// balance wagered on bets; it is only ever debited inside the same
// transaction that approves a bet.
type User struct {
	gorm.Model
	Email        string `gorm:"size:255;unique;not null"`
	Username     string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Coins        int    `gorm:"not null;default:1000"`

	Rooms         []Room         `gorm:"foreignKey:CreatorID"`
	Memberships   []RoomMember   `gorm:"foreignKey:UserID"`
	Bets          []Bet          `gorm:"foreignKey:UserID"`
	Notifications []Notification `gorm:"foreignKey:UserID"`
}
