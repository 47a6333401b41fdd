package models

import "time"

// RefreshToken is an opaque, DB-backed credential used to mint new
// access tokens. Logout revokes every live token of the user.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"not null;index"`
	Token     string     `gorm:"size:128;unique;not null"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
