package handler

import (
	"net/http"
	"strconv"
	"time"

	"sodabet/backend/internal/database"
	"sodabet/backend/internal/hub"
	"sodabet/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// region --- DTOs ---

// MessageInput defines the structure for sending a message.
type MessageInput struct {
	RoomID  uint   `json:"room_id" binding:"required"`
	Content string `json:"content" binding:"required" example:"hello"`
}

// MessageResponse defines the structure for a message projection.
// System messages have no user_id and render under the bot name.
type MessageResponse struct {
	ID        uint      `json:"id"`
	RoomID    uint      `json:"room_id"`
	UserID    *uint     `json:"user_id,omitempty"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func newMessageResponse(msg models.Message, username string) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

// endregion

// SendMessage godoc
// @Summary      Send a message
// @Description  Persists a chat message and relays it to the room's live subscribers. Relay is best-effort; persistence never fails because of it.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body MessageInput true "Message"
// @Success      201  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not a room member"
// @Failure      404  {object}  ErrorResponse "Room absent or closed"
// @Router       /messages [post]
func SendMessage(c *gin.Context) {
	userID := currentUserID(c)

	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var room models.Room
	if err := database.DB.Where("id = ? AND status = ?", input.RoomID, models.RoomStatusOpen).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found or closed"})
		return
	}

	if _, ok := requireMembership(c, room.ID); !ok {
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	response, err := persistAndBroadcast(room.ID, &user, input.Content)
	if err != nil {
		log.Error().Err(err).Uint("room_id", room.ID).Msg("failed to persist message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// persistAndBroadcast stores a message and then relays it to the
// room's subscribers. The broadcast happens strictly after the durable
// write and cannot fail the send.
func persistAndBroadcast(roomID uint, author *models.User, content string) (MessageResponse, error) {
	msg := models.Message{RoomID: roomID, Content: content}
	username := models.SystemUsername
	if author != nil {
		msg.UserID = &author.ID
		username = author.Username
	}
	if err := database.DB.Create(&msg).Error; err != nil {
		return MessageResponse{}, err
	}

	response := newMessageResponse(msg, username)
	hub.GlobalHub.Broadcast(roomID, hub.Event{Type: "message", Payload: response})
	return response, nil
}

// GetRoomMessages godoc
// @Summary      List room messages
// @Description  Returns a room's messages in creation order. Members only.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        room_id path int true "Room ID"
// @Success      200  {array}   MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/room/{room_id} [get]
func GetRoomMessages(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
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

	var messages []models.Message
	if err := database.DB.Where("room_id = ?", room.ID).Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	usernames, err := resolveUsernames(messages)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve usernames"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		username := models.SystemUsername
		if msg.UserID != nil {
			username = usernames[*msg.UserID]
		}
		response = append(response, newMessageResponse(msg, username))
	}
	c.JSON(http.StatusOK, response)
}

// resolveUsernames batch-loads the usernames of every distinct author
// in the slice.
func resolveUsernames(messages []models.Message) (map[uint]string, error) {
	seen := make(map[uint]struct{}, len(messages))
	userIDs := make([]uint, 0, len(messages))
	for _, msg := range messages {
		if msg.UserID == nil {
			continue
		}
		if _, ok := seen[*msg.UserID]; ok {
			continue
		}
		seen[*msg.UserID] = struct{}{}
		userIDs = append(userIDs, *msg.UserID)
	}

	usernames := make(map[uint]string, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := database.DB.Select("id", "username").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}
	return usernames, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MessageSocket godoc
// @Summary      Subscribe to a room's live messages
// @Description  Upgrades to a WebSocket and streams new messages of the room. Inbound frames of the form {"content": "..."} are persisted and relayed. Pass the bearer token in the Authorization header or the token query parameter.
// @Tags         messages
// @Security     BearerAuth
// @Param        room_id path int true "Room ID"
// @Success      101
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/ws/{room_id} [get]
func MessageSocket(c *gin.Context) {
	userID := currentUserID(c)
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var room models.Room
	if err := database.DB.Where("id = ? AND status = ?", roomID, models.RoomStatusOpen).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found or closed"})
		return
	}

	if _, ok := requireMembership(c, room.ID); !ok {
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Uint("room_id", room.ID).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(room.ID, conn)
	client.OnMessage = func(content string) {
		if _, err := persistAndBroadcast(room.ID, &user, content); err != nil {
			log.Error().Err(err).Uint("room_id", room.ID).Msg("failed to persist websocket message")
		}
	}
	hub.GlobalHub.Subscribe(room.ID, client)
	log.Info().Uint("room_id", room.ID).Uint("user_id", user.ID).Msg("websocket subscriber connected")

	go client.WritePump()
	client.ReadPump(hub.GlobalHub)
}
