package handler

import (
	"net/http"
	"time"

	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// NotificationResponse defines the structure for a notification, with
// the referenced bet's description resolved when present.
type NotificationResponse struct {
	ID             uint      `json:"id"`
	Type           string    `json:"type" example:"bet_result"`
	Message        string    `json:"message"`
	Resolved       bool      `json:"resolved"`
	BetID          *uint     `json:"bet_id,omitempty"`
	BetDescription *string   `json:"bet_description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func newNotificationResponse(n models.Notification, betDescription *string) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		Type:           string(n.Type),
		Message:        n.Message,
		Resolved:       n.Resolved,
		BetID:          n.BetID,
		BetDescription: betDescription,
		CreatedAt:      n.CreatedAt,
	}
}

// endregion

// GetNotifications godoc
// @Summary      List own notifications
// @Description  Returns the authenticated user's notifications, newest first.
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   NotificationResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /notifications [get]
func GetNotifications(c *gin.Context) {
	userID := currentUserID(c)

	var notifications []models.Notification
	err := database.DB.Preload("Bet").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	response := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		var betDescription *string
		if n.Bet != nil {
			betDescription = &n.Bet.Description
		}
		response = append(response, newNotificationResponse(n, betDescription))
	}
	c.JSON(http.StatusOK, response)
}
