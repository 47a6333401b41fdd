package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sodabet/backend/internal/config"
	"sodabet/backend/internal/database"
	"sodabet/backend/internal/hub"
	"sodabet/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RoomInput defines the structure for room creation.
type RoomInput struct {
	Name        string `json:"name" binding:"required,min=1,max=255" example:"High Rollers"`
	Description string `json:"description" example:"Friendly wagers only"`
}

// JoinRoomInput carries the join token for private rooms.
type JoinRoomInput struct {
	Token string `json:"token"`
}

// RoomResponse defines the structure for a room projection.
type RoomResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	Status      string    `json:"status" example:"OPEN"`
	Token       *string   `json:"token,omitempty"`
	CreatorID   uint      `json:"creator_id"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberResponse describes one room member.
type MemberResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role" example:"MEMBER"`
	IsCreator bool   `json:"is_creator"`
}

func newRoomResponse(room models.Room, memberCount int64) RoomResponse {
	return RoomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		IsPublic:    room.IsPublic,
		Status:      string(room.Status),
		Token:       room.Token,
		CreatorID:   room.CreatorID,
		MemberCount: memberCount,
		CreatedAt:   room.CreatedAt,
	}
}

// endregion

// createRoom allocates a room and inserts the creator as its
// SUPERUSER member in one transaction. Private rooms receive a
// generated unique join token; a collision on the unique constraint is
// retried once with a fresh token before giving up.
func createRoom(c *gin.Context, isPublic bool) {
	userID := currentUserID(c)

	var input RoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := models.Room{
		CreatorID:   userID,
		Name:        input.Name,
		Description: input.Description,
		Status:      models.RoomStatusOpen,
		IsPublic:    isPublic,
	}

	const tokenAttempts = 2
	var err error
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		if !isPublic {
			token := uuid.NewString()
			room.Token = &token
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&room).Error; err != nil {
				return err
			}
			member := models.RoomMember{
				RoomID: room.ID,
				UserID: userID,
				Role:   models.RoleSuperuser,
			}
			return tx.Create(&member).Error
		})
		if err == nil || isPublic {
			break
		}
		room.ID = 0 // retry with a fresh token
	}
	if err != nil {
		if !isPublic {
			log.Error().Err(err).Msg("failed to create private room after token retry")
			c.JSON(http.StatusConflict, gin.H{"error": "Could not allocate a unique room token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	log.Info().Uint("room_id", room.ID).Uint("user_id", userID).Bool("public", isPublic).Msg("room created")
	c.JSON(http.StatusCreated, newRoomResponse(room, 1))
}

// CreatePublicRoom godoc
// @Summary      Create a public room
// @Description  Creates a public room and makes the creator its superuser.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body RoomInput true "Room Info"
// @Success      201  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /rooms/public [post]
func CreatePublicRoom(c *gin.Context) {
	createRoom(c, true)
}

// CreatePrivateRoom godoc
// @Summary      Create a private room
// @Description  Creates a token-gated private room and makes the creator its superuser.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body RoomInput true "Room Info"
// @Success      201  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Token collision"
// @Router       /rooms/private [post]
func CreatePrivateRoom(c *gin.Context) {
	createRoom(c, false)
}

// GetMyRooms godoc
// @Summary      List joined rooms
// @Description  Lists the open rooms the authenticated user is a member of, with live member counts.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   RoomResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /rooms/me [get]
func GetMyRooms(c *gin.Context) {
	userID := currentUserID(c)

	var rooms []models.Room
	err := database.DB.
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ? AND rooms.status = ?", userID, models.RoomStatusOpen).
		Find(&rooms).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rooms"})
		return
	}

	c.JSON(http.StatusOK, roomListResponse(rooms))
}

// GetPublicRooms godoc
// @Summary      List public rooms
// @Description  Lists all open public rooms with pagination. No authentication required.
// @Tags         rooms
// @Produce      json
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(20)
// @Success      200  {object}  PaginatedResponse[RoomResponse]
// @Router       /rooms/public [get]
func GetPublicRooms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	query := database.DB.Where("is_public = ? AND status = ?", true, models.RoomStatusOpen).Order("id")
	paginated, err := Paginate[models.Room](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch public rooms"})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse[RoomResponse]{
		Data: roomListResponse(paginated.Data),
		Meta: paginated.Meta,
	})
}

// GetPrivateRooms godoc
// @Summary      List own private rooms
// @Description  Lists the private rooms created by the authenticated user.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   RoomResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /rooms/private [get]
func GetPrivateRooms(c *gin.Context) {
	userID := currentUserID(c)

	var rooms []models.Room
	err := database.DB.Where("is_public = ? AND creator_id = ?", false, userID).Find(&rooms).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch private rooms"})
		return
	}

	c.JSON(http.StatusOK, roomListResponse(rooms))
}

func roomListResponse(rooms []models.Room) []RoomResponse {
	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, newRoomResponse(room, roomMemberCount(database.DB, room.ID)))
	}
	return response
}

// GetRoomByID godoc
// @Summary      Get room details
// @Description  Gets a single room. Private rooms are only visible to their members.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  RoomResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{id} [get]
func GetRoomByID(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var room models.Room
	if err := database.DB.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	if !room.IsPublic {
		if _, ok := requireMembership(c, room.ID); !ok {
			return
		}
	}

	c.JSON(http.StatusOK, newRoomResponse(room, roomMemberCount(database.DB, room.ID)))
}

// JoinRoom godoc
// @Summary      Join a room
// @Description  Joins an open room as a MEMBER. Private rooms require the matching join token. A welcome message is posted on success.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int           true  "Room ID"
// @Param        input body JoinRoomInput false "Join token for private rooms"
// @Success      200  {object}  RoomResponse
// @Failure      403  {object}  ErrorResponse "Wrong token"
// @Failure      404  {object}  ErrorResponse "Room absent or closed"
// @Failure      409  {object}  ErrorResponse "Already a member or room full"
// @Router       /rooms/{id}/join [post]
func JoinRoom(c *gin.Context) {
	userID := currentUserID(c)
	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var input JoinRoomInput
	_ = c.ShouldBindJSON(&input) // body is optional for public rooms

	var room models.Room
	if err := database.DB.Where("id = ? AND status = ?", roomID, models.RoomStatusOpen).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found or closed"})
		return
	}

	if !room.IsPublic {
		if room.Token == nil || input.Token != *room.Token {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid room token"})
			return
		}
	}

	if _, err := getMembership(database.DB, room.ID, userID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You are already a member of this room"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check room membership"})
		return
	}

	if roomMemberCount(database.DB, room.ID) >= int64(config.AppConfig.RoomMemberCap) {
		c.JSON(http.StatusConflict, gin.H{"error": "Room is full"})
		return
	}

	welcome := models.Message{
		RoomID:  room.ID,
		UserID:  nil, // system message
		Content: fmt.Sprintf("Welcome to %s! Start chatting in the #chat channel.", room.Name),
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		member := models.RoomMember{RoomID: room.ID, UserID: userID, Role: models.RoleMember}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Create(&welcome).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("room_id", room.ID).Uint("user_id", userID).Msg("failed to join room")
		c.JSON(http.StatusConflict, gin.H{"error": "You are already a member of this room"})
		return
	}

	// Relay is best-effort after the durable write.
	hub.GlobalHub.Broadcast(room.ID, hub.Event{
		Type:    "message",
		Payload: newMessageResponse(welcome, models.SystemUsername),
	})

	log.Info().Uint("room_id", room.ID).Uint("user_id", userID).Msg("user joined room")
	c.JSON(http.StatusOK, newRoomResponse(room, roomMemberCount(database.DB, room.ID)))
}

// ListRoomMembers godoc
// @Summary      List room members
// @Description  Lists the members of a room. Members only.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {array}   MemberResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{id}/members [get]
func ListRoomMembers(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var room models.Room
	if err := database.DB.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	if _, ok := requireMembership(c, room.ID); !ok {
		return
	}

	var members []models.RoomMember
	if err := database.DB.Preload("User").Where("room_id = ?", room.ID).Order("id").Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	response := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		response = append(response, MemberResponse{
			ID:        m.UserID,
			Username:  m.User.Username,
			Role:      string(m.Role),
			IsCreator: m.UserID == room.CreatorID,
		})
	}
	c.JSON(http.StatusOK, response)
}

// SearchRoomByToken godoc
// @Summary      Look up a private room by token
// @Description  Read-only discovery of a private room by its join token. No authentication or membership required.
// @Tags         rooms
// @Produce      json
// @Param        token path string true "Room token"
// @Success      200  {object}  RoomResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/search/{token} [get]
func SearchRoomByToken(c *gin.Context) {
	token := c.Param("token")

	var room models.Room
	if err := database.DB.Where("token = ? AND is_public = ?", token, false).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, newRoomResponse(room, roomMemberCount(database.DB, room.ID)))
}

// DeletePublicRoom godoc
// @Summary      Delete a public room (creator only)
// @Description  Deletes a public room and cascades to its memberships, messages and bets.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/public/{id} [delete]
func DeletePublicRoom(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var room models.Room
	if err := database.DB.Where("id = ? AND is_public = ?", roomID, true).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	deleteRoom(c, room)
}

// DeletePrivateRoom godoc
// @Summary      Delete a private room by token (creator only)
// @Description  Deletes a private room and cascades to its memberships, messages and bets.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        token path string true "Room token"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/private/{token} [delete]
func DeletePrivateRoom(c *gin.Context) {
	token := c.Param("token")

	var room models.Room
	if err := database.DB.Where("token = ? AND is_public = ?", token, false).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	deleteRoom(c, room)
}

func deleteRoom(c *gin.Context, room models.Room) {
	userID := currentUserID(c)
	if room.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the creator can delete the room"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.Bet{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("room_id", room.ID).Msg("failed to delete room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete room"})
		return
	}

	log.Info().Uint("room_id", room.ID).Uint("user_id", userID).Msg("room deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}
