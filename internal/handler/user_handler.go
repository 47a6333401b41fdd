package handler

import (
	"net/http"

	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"
	"sodabet/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Username string `json:"username" binding:"required,min=3" example:"testuser"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login. Either email or
// username identifies the account.
type LoginInput struct {
	Email    string `json:"email" example:"test@example.com"`
	Username string `json:"username" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// RefreshInput carries the opaque refresh token.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is the credential pair returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"bearer"`
}

// UserResponse defines the structure for a user projection.
type UserResponse struct {
	ID       uint   `json:"id" example:"1"`
	Email    string `json:"email" example:"test@example.com"`
	Username string `json:"username" example:"testuser"`
	Coins    int    `json:"coins" example:"1000"`
}

// ProfileResponse is the authenticated user's profile including the
// notification feed.
type ProfileResponse struct {
	UserResponse
	Notifications []NotificationResponse `json:"notifications"`
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

func newUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Coins:    user.Coins,
	}
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user with the default starting coin balance.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingUser models.User
	if err := database.DB.Where("email = ? OR username = ?", input.Email, input.Username).First(&existingUser).Error; err == nil {
		if existingUser.Email == input.Email {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		}
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
		Coins:        models.DefaultStartingCoins,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		log.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email or username and password, and returns an access/refresh token pair.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Email == "" && input.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email or username is required"})
		return
	}

	var user models.User
	query := database.DB
	if input.Email != "" {
		query = query.Where("LOWER(email) = LOWER(?)", input.Email)
	} else {
		query = query.Where("LOWER(username) = LOWER(?)", input.Username)
	}
	if err := query.First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	accessToken, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	refreshToken, err := jwt.GenerateRefreshToken(database.DB, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	log.Info().Uint("user_id", user.ID).Msg("login successful")
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	})
}

// RefreshSession godoc
// @Summary      Refresh the access token
// @Description  Exchanges a live refresh token for a new access/refresh token pair. The presented refresh token is revoked.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body RefreshInput true "Refresh token"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse "Unknown, expired or revoked token"
// @Router       /users/refresh [post]
func RefreshSession(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := jwt.ValidateRefreshToken(database.DB, input.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	// Rotate: the old token is burned before the new pair is issued.
	if err := jwt.RevokeRefreshToken(database.DB, stored.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate refresh token"})
		return
	}

	accessToken, err := jwt.GenerateToken(stored.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	refreshToken, err := jwt.GenerateRefreshToken(database.DB, stored.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	})
}

// LogoutUser godoc
// @Summary      Log out
// @Description  Revokes all live refresh tokens of the authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /users/logout [post]
func LogoutUser(c *gin.Context) {
	userID := currentUserID(c)
	if err := jwt.RevokeUserRefreshTokens(database.DB, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	log.Info().Uint("user_id", userID).Msg("user logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// endregion

// GetMe godoc
// @Summary      Get current user's profile
// @Description  Retrieves the authenticated user's profile together with their notifications, newest first.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ProfileResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	userID := currentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var notifications []models.Notification
	if err := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	response := ProfileResponse{
		UserResponse:  newUserResponse(user),
		Notifications: make([]NotificationResponse, 0, len(notifications)),
	}
	for _, n := range notifications {
		response.Notifications = append(response.Notifications, newNotificationResponse(n, nil))
	}
	c.JSON(http.StatusOK, response)
}
