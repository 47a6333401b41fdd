package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	router := setupTest(t)
	user, token := seedUser(t, "alice")
	_, strangerToken := seedUser(t, "bob")

	room := createTestRoom(t, router, token, true)

	w := performRequest(router, http.MethodPost, "/messages", token, MessageInput{
		RoomID:  room.ID,
		Content: "hello",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	msg := decodeJSON[MessageResponse](t, w)
	assert.Equal(t, room.ID, msg.RoomID)
	require.NotNil(t, msg.UserID)
	assert.Equal(t, user.ID, *msg.UserID)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "hello", msg.Content)

	// Non-members cannot post.
	w = performRequest(router, http.MethodPost, "/messages", strangerToken, MessageInput{
		RoomID:  room.ID,
		Content: "let me in",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSendMessageClosedRoom(t *testing.T) {
	router := setupTest(t)
	_, token := seedUser(t, "alice")

	room := createTestRoom(t, router, token, true)
	require.NoError(t, database.DB.Model(&models.Room{}).
		Where("id = ?", room.ID).
		Update("status", models.RoomStatusClosed).Error)

	w := performRequest(router, http.MethodPost, "/messages", token, MessageInput{
		RoomID:  room.ID,
		Content: "anyone here?",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Room not found or closed", decodeJSON[ErrorResponse](t, w).Error)
}

func TestGetRoomMessagesOrderAndAuthors(t *testing.T) {
	router := setupTest(t)
	_, aliceToken := seedUser(t, "alice")
	_, bobToken := seedUser(t, "bob")
	_, strangerToken := seedUser(t, "carol")

	room := createTestRoom(t, router, aliceToken, true)
	w := performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for i, tc := range []struct {
		token   string
		content string
	}{
		{aliceToken, "first"},
		{bobToken, "second"},
		{aliceToken, "third"},
	} {
		w := performRequest(router, http.MethodPost, "/messages", tc.token, MessageInput{
			RoomID:  room.ID,
			Content: tc.content,
		})
		require.Equal(t, http.StatusCreated, w.Code, "message %d", i)
	}

	w = performRequest(router, http.MethodGet, fmt.Sprintf("/messages/room/%d", room.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decodeJSON[[]MessageResponse](t, w)

	// The join posted a welcome message before the chat started.
	require.Len(t, messages, 4)
	assert.Equal(t, models.SystemUsername, messages[0].Username)
	assert.Equal(t, "first", messages[1].Content)
	assert.Equal(t, "alice", messages[1].Username)
	assert.Equal(t, "second", messages[2].Content)
	assert.Equal(t, "bob", messages[2].Username)
	assert.Equal(t, "third", messages[3].Content)

	// History is members-only.
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/messages/room/%d", room.ID), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessageSocketRoundTrip(t *testing.T) {
	router := setupTest(t)
	_, token := seedUser(t, "alice")
	room := createTestRoom(t, router, token, true)

	server := httptest.NewServer(router)
	defer server.Close()

	// Browser WebSocket clients cannot set headers, so the token rides
	// in the query string.
	wsURL := fmt.Sprintf("%s/messages/ws/%d?token=%s",
		strings.Replace(server.URL, "http", "ws", 1), room.ID, token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"content": "live message"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string          `json:"type"`
		Payload MessageResponse `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "message", event.Type)
	assert.Equal(t, "live message", event.Payload.Content)
	assert.Equal(t, "alice", event.Payload.Username)

	// The frame was also persisted.
	var count int64
	database.DB.Model(&models.Message{}).
		Where("room_id = ? AND content = ?", room.ID, "live message").
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMessageSocketRequiresMembership(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, strangerToken := seedUser(t, "bob")
	room := createTestRoom(t, router, creatorToken, true)

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := fmt.Sprintf("%s/messages/ws/%d?token=%s",
		strings.Replace(server.URL, "http", "ws", 1), room.ID, strangerToken)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
