package handler

import (
	"errors"
	"net/http"

	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Every room, bet and message operation funnels its authorization
// through the helpers below instead of repeating membership lookups
// inline.

// currentUserID returns the authenticated user ID placed in the
// context by auth.AuthMiddleware.
func currentUserID(c *gin.Context) uint {
	userID, _ := c.Get("userID")
	id, _ := userID.(uint)
	return id
}

// getMembership loads the caller's membership row for a room.
// Returns gorm.ErrRecordNotFound when the user is not a member.
func getMembership(db *gorm.DB, roomID, userID uint) (*models.RoomMember, error) {
	var member models.RoomMember
	err := db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// requireMembership aborts with 403 unless the caller belongs to the
// room. On success it returns the membership row.
func requireMembership(c *gin.Context, roomID uint) (*models.RoomMember, bool) {
	member, err := getMembership(database.DB, roomID, currentUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this room"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check room membership"})
		}
		return nil, false
	}
	return member, true
}

// requireBetDecider aborts with 403 unless the caller holds a role in
// the room that may approve or reject bets.
func requireBetDecider(c *gin.Context, roomID uint) (*models.RoomMember, bool) {
	member, ok := requireMembership(c, roomID)
	if !ok {
		return nil, false
	}
	if !member.Role.CanDecideBets() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only a room admin or superuser may decide bets"})
		return nil, false
	}
	return member, true
}

// roomMemberCount returns the live member count of a room.
func roomMemberCount(db *gorm.DB, roomID uint) int64 {
	var count int64
	db.Model(&models.RoomMember{}).Where("room_id = ?", roomID).Count(&count)
	return count
}
