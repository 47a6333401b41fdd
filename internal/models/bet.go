package models

import (
	"time"

	"gorm.io/gorm"
)

type BetStatus string

const (
	BetStatusPending  BetStatus = "PENDING"
	BetStatusApproved BetStatus = "APPROVED"
	BetStatusRejected BetStatus = "REJECTED"
	// BetStatusResolved marks an approved bet whose outcome has been
	// settled. No endpoint transitions to it yet; the column exists so
	// settlement can land without a migration.
	BetStatusResolved BetStatus = "RESOLVED"
)

type BetResult string

const (
	BetResultUnknown BetResult = "UNKNOWN"
	BetResultWon     BetResult = "WON"
	BetResultLost    BetResult = "LOST"
	BetResultDraw    BetResult = "DRAW"
)

// Bet is a wager proposal inside a room. The amount stays on the
// proposer's balance until approval: only the PENDING -> APPROVED
// transition debits coins, and it re-checks the balance at that point.
type Bet struct {
	gorm.Model
	RoomID      uint      `gorm:"not null;index"`
	UserID      uint      `gorm:"not null;index"` // proposer
	Description string    `gorm:"type:text;not null"`
	Amount      int       `gorm:"not null"`
	MediatorID  uint      `gorm:"not null"`
	Status      BetStatus `gorm:"size:20;not null;default:'PENDING'"`
	Result      BetResult `gorm:"size:20;not null;default:'UNKNOWN'"`
	ApprovedBy  *uint
	StartTime   *time.Time
	EndTime     time.Time `gorm:"not null"`

	Room     Room `gorm:"foreignKey:RoomID"`
	User     User `gorm:"foreignKey:UserID"`
	Mediator User `gorm:"foreignKey:MediatorID"`
}
