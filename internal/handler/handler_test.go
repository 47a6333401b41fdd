package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sodabet/backend/internal/config"
	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"
	"sodabet/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClientAddr isolates each test's rate-limit bucket; the limiter
// keys on client IP and its state outlives a single test.
var testClientAddr string

var testClientSeq atomic.Uint32

// setupTest wires a fresh in-memory database and returns the full
// route table, so every test exercises the real middleware chain.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	n := testClientSeq.Add(1)
	testClientAddr = fmt.Sprintf("10.0.%d.%d:52000", n/256, n%256)

	config.AppConfig = &config.Config{
		JWTSecret:           "test-secret",
		AccessTokenTTLMins:  90,
		RefreshTokenTTLDays: 3,
		RoomMemberCap:       100,
		CORSAllowedOrigins:  "*",
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// The in-memory database lives and dies with a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	database.DB = db

	return NewRouter()
}

// seedUser inserts a user directly and mints an access token, so
// tests that are not about the auth flow skip the rate-limited
// register/login endpoints.
func seedUser(t *testing.T, username string) (models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: string(hash),
		Coins:        models.DefaultStartingCoins,
	}
	require.NoError(t, database.DB.Create(&user).Error)

	token, err := jwt.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func performRequest(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = testClientAddr
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// createTestRoom creates a room through the API as the given user.
func createTestRoom(t *testing.T, router http.Handler, token string, isPublic bool) RoomResponse {
	t.Helper()

	path := "/rooms/private"
	if isPublic {
		path = "/rooms/public"
	}
	w := performRequest(router, http.MethodPost, path, token, RoomInput{
		Name:        "Test Room",
		Description: "A room for testing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeJSON[RoomResponse](t, w)
}
