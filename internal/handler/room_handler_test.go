package handler

import (
	"fmt"
	"net/http"
	"testing"

	"sodabet/backend/internal/config"
	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePublicRoom(t *testing.T) {
	router := setupTest(t)
	user, token := seedUser(t, "alice")

	room := createTestRoom(t, router, token, true)
	assert.Equal(t, "Test Room", room.Name)
	assert.Equal(t, "A room for testing", room.Description)
	assert.True(t, room.IsPublic)
	assert.Equal(t, string(models.RoomStatusOpen), room.Status)
	assert.Nil(t, room.Token)
	assert.Equal(t, user.ID, room.CreatorID)
	assert.Equal(t, int64(1), room.MemberCount)

	// The creator is enrolled as the room's superuser.
	member, err := getMembership(database.DB, room.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperuser, member.Role)

	// Fetching it back returns the same projection.
	w := performRequest(router, http.MethodGet, fmt.Sprintf("/rooms/%d", room.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decodeJSON[RoomResponse](t, w)
	assert.Equal(t, room.Name, fetched.Name)
	assert.Equal(t, room.Description, fetched.Description)
	assert.True(t, fetched.IsPublic)
	assert.Equal(t, int64(1), fetched.MemberCount)
}

func TestCreatePrivateRoom(t *testing.T) {
	router := setupTest(t)
	_, token := seedUser(t, "alice")

	room := createTestRoom(t, router, token, false)
	assert.False(t, room.IsPublic)
	require.NotNil(t, room.Token)
	assert.NotEmpty(t, *room.Token)

	other := createTestRoom(t, router, token, false)
	require.NotNil(t, other.Token)
	assert.NotEqual(t, *room.Token, *other.Token)
}

func TestJoinPublicRoom(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, joinerToken := seedUser(t, "bob")

	room := createTestRoom(t, router, creatorToken, true)

	w := performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), joinerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decodeJSON[RoomResponse](t, w)
	assert.Equal(t, int64(2), joined.MemberCount)

	// Joining twice is rejected.
	w = performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), joinerToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You are already a member of this room", decodeJSON[ErrorResponse](t, w).Error)

	// The join posted a welcome message under the bot name.
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/messages/room/%d", room.ID), joinerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decodeJSON[[]MessageResponse](t, w)
	require.Len(t, messages, 1)
	assert.Equal(t, models.SystemUsername, messages[0].Username)
	assert.Nil(t, messages[0].UserID)
	assert.Equal(t, "Welcome to Test Room! Start chatting in the #chat channel.", messages[0].Content)
}

func TestJoinPrivateRoomRequiresToken(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, joinerToken := seedUser(t, "bob")

	room := createTestRoom(t, router, creatorToken, false)
	path := fmt.Sprintf("/rooms/%d/join", room.ID)

	w := performRequest(router, http.MethodPost, path, joinerToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(router, http.MethodPost, path, joinerToken, JoinRoomInput{Token: "wrong-token"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid room token", decodeJSON[ErrorResponse](t, w).Error)

	w = performRequest(router, http.MethodPost, path, joinerToken, JoinRoomInput{Token: *room.Token})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestJoinRoomMemberCap(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, joinerToken := seedUser(t, "bob")

	config.AppConfig.RoomMemberCap = 3
	room := createTestRoom(t, router, creatorToken, true)

	// Fill the room up to the cap with synthetic members.
	for i := 0; i < 2; i++ {
		user, _ := seedUser(t, fmt.Sprintf("filler%d", i))
		member := models.RoomMember{RoomID: room.ID, UserID: user.ID, Role: models.RoleMember}
		require.NoError(t, database.DB.Create(&member).Error)
	}

	w := performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), joinerToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Room is full", decodeJSON[ErrorResponse](t, w).Error)
}

func TestJoinClosedRoom(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, joinerToken := seedUser(t, "bob")

	room := createTestRoom(t, router, creatorToken, true)
	require.NoError(t, database.DB.Model(&models.Room{}).
		Where("id = ?", room.ID).
		Update("status", models.RoomStatusClosed).Error)

	w := performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), joinerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMyRooms(t *testing.T) {
	router := setupTest(t)
	_, aliceToken := seedUser(t, "alice")
	_, bobToken := seedUser(t, "bob")

	room := createTestRoom(t, router, aliceToken, true)
	createTestRoom(t, router, bobToken, true)

	w := performRequest(router, http.MethodGet, "/rooms/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rooms := decodeJSON[[]RoomResponse](t, w)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)
}

func TestGetPublicRooms(t *testing.T) {
	router := setupTest(t)
	_, token := seedUser(t, "alice")

	createTestRoom(t, router, token, true)
	createTestRoom(t, router, token, true)
	createTestRoom(t, router, token, false) // private, must not be listed

	// No credentials needed for public discovery.
	w := performRequest(router, http.MethodGet, "/rooms/public?page=1&limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	page := decodeJSON[PaginatedResponse[RoomResponse]](t, w)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(2), page.Meta.TotalItems)
	assert.Equal(t, 2, page.Meta.TotalPages)
}

func TestGetRoomByIDPrivateVisibility(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, strangerToken := seedUser(t, "bob")

	room := createTestRoom(t, router, creatorToken, false)
	path := fmt.Sprintf("/rooms/%d", room.ID)

	w := performRequest(router, http.MethodGet, path, creatorToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodGet, path, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListRoomMembers(t *testing.T) {
	router := setupTest(t)
	alice, aliceToken := seedUser(t, "alice")
	_, bobToken := seedUser(t, "bob")
	_, strangerToken := seedUser(t, "carol")

	room := createTestRoom(t, router, aliceToken, true)
	w := performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodGet, fmt.Sprintf("/rooms/%d/members", room.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decodeJSON[[]MemberResponse](t, w)
	require.Len(t, members, 2)
	assert.Equal(t, alice.ID, members[0].ID)
	assert.Equal(t, string(models.RoleSuperuser), members[0].Role)
	assert.True(t, members[0].IsCreator)
	assert.Equal(t, string(models.RoleMember), members[1].Role)
	assert.False(t, members[1].IsCreator)

	// Members only.
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/rooms/%d/members", room.ID), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSearchRoomByToken(t *testing.T) {
	router := setupTest(t)
	_, token := seedUser(t, "alice")

	room := createTestRoom(t, router, token, false)

	w := performRequest(router, http.MethodGet, "/rooms/search/"+*room.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decodeJSON[RoomResponse](t, w)
	assert.Equal(t, room.ID, found.ID)

	w = performRequest(router, http.MethodGet, "/rooms/search/no-such-token", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRoomCreatorOnly(t *testing.T) {
	router := setupTest(t)
	_, creatorToken := seedUser(t, "alice")
	_, memberToken := seedUser(t, "bob")

	room := createTestRoom(t, router, creatorToken, true)
	w := performRequest(router, http.MethodPost, fmt.Sprintf("/rooms/%d/join", room.ID), memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodDelete, fmt.Sprintf("/rooms/public/%d", room.ID), memberToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Only the creator can delete the room", decodeJSON[ErrorResponse](t, w).Error)

	w = performRequest(router, http.MethodDelete, fmt.Sprintf("/rooms/public/%d", room.ID), creatorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Memberships and messages go with the room.
	var memberCount, messageCount int64
	database.DB.Model(&models.RoomMember{}).Where("room_id = ?", room.ID).Count(&memberCount)
	database.DB.Model(&models.Message{}).Where("room_id = ?", room.ID).Count(&messageCount)
	assert.Zero(t, memberCount)
	assert.Zero(t, messageCount)

	w = performRequest(router, http.MethodGet, fmt.Sprintf("/rooms/%d", room.ID), creatorToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePrivateRoomByToken(t *testing.T) {
	router := setupTest(t)
	_, token := seedUser(t, "alice")

	room := createTestRoom(t, router, token, false)

	w := performRequest(router, http.MethodDelete, "/rooms/private/"+*room.Token, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(router, http.MethodGet, "/rooms/search/"+*room.Token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
