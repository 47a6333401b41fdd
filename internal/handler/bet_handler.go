package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sodabet/backend/internal/database"
	"sodabet/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// region --- DTOs ---

// BetInput defines the structure for proposing a bet.
type BetInput struct {
	RoomID      uint      `json:"room_id" binding:"required"`
	Description string    `json:"description" binding:"required" example:"Team A wins tonight"`
	Amount      int       `json:"amount" binding:"required" example:"50"`
	MediatorID  *uint     `json:"mediator_id,omitempty"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

// BetDecisionInput carries an admin's decision on a pending bet.
type BetDecisionInput struct {
	Status models.BetStatus `json:"status" binding:"required" example:"APPROVED"`
}

// BetResponse defines the structure for a bet projection.
type BetResponse struct {
	ID          uint       `json:"id"`
	RoomID      uint       `json:"room_id"`
	UserID      uint       `json:"user_id"`
	Description string     `json:"description"`
	Amount      int        `json:"amount"`
	MediatorID  uint       `json:"mediator_id"`
	Status      string     `json:"status" example:"PENDING"`
	Result      string     `json:"result" example:"UNKNOWN"`
	ApprovedBy  *uint      `json:"approved_by,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     time.Time  `json:"end_time"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newBetResponse(bet models.Bet) BetResponse {
	return BetResponse{
		ID:          bet.ID,
		RoomID:      bet.RoomID,
		UserID:      bet.UserID,
		Description: bet.Description,
		Amount:      bet.Amount,
		MediatorID:  bet.MediatorID,
		Status:      string(bet.Status),
		Result:      string(bet.Result),
		ApprovedBy:  bet.ApprovedBy,
		StartTime:   bet.StartTime,
		EndTime:     bet.EndTime,
		CreatedAt:   bet.CreatedAt,
	}
}

// endregion

// ProposeBet godoc
// @Summary      Propose a bet
// @Description  Creates a PENDING bet in a room. Coins are not debited yet; the proposer only needs a sufficient balance right now. The mediator defaults to the room's superuser.
// @Tags         bets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body BetInput true "Bet proposal"
// @Success      201  {object}  BetResponse
// @Failure      400  {object}  ErrorResponse "Non-positive amount, past end time or insufficient coins"
// @Failure      403  {object}  ErrorResponse "Not a room member"
// @Failure      404  {object}  ErrorResponse
// @Router       /bets [post]
func ProposeBet(c *gin.Context) {
	userID := currentUserID(c)

	var input BetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bet amount must be positive"})
		return
	}
	if !input.EndTime.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be in the future"})
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

	var proposer models.User
	if err := database.DB.First(&proposer, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if proposer.Coins < input.Amount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient coins"})
		return
	}

	mediatorID, err := resolveMediator(room.ID, input.MediatorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	bet := models.Bet{
		RoomID:      room.ID,
		UserID:      userID,
		Description: input.Description,
		Amount:      input.Amount,
		MediatorID:  mediatorID,
		Status:      models.BetStatusPending,
		Result:      models.BetResultUnknown,
		EndTime:     input.EndTime,
	}
	if err := database.DB.Create(&bet).Error; err != nil {
		log.Error().Err(err).Uint("room_id", room.ID).Msg("failed to create bet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bet"})
		return
	}

	log.Info().Uint("bet_id", bet.ID).Uint("room_id", room.ID).Uint("user_id", userID).Int("amount", bet.Amount).Msg("bet proposed")
	c.JSON(http.StatusCreated, newBetResponse(bet))
}

// resolveMediator picks the bet's mediator: the explicitly supplied
// user when present, otherwise the room's superuser.
func resolveMediator(roomID uint, explicit *uint) (uint, error) {
	if explicit != nil {
		var mediator models.User
		if err := database.DB.First(&mediator, *explicit).Error; err != nil {
			return 0, errors.New("Mediator not found")
		}
		return mediator.ID, nil
	}

	var superuser models.RoomMember
	err := database.DB.Where("room_id = ? AND role = ?", roomID, models.RoleSuperuser).First(&superuser).Error
	if err != nil {
		return 0, errors.New("Room has no superuser to mediate")
	}
	return superuser.UserID, nil
}

// ListBets godoc
// @Summary      List bets in a room
// @Description  Lists a room's bets. Admins and the superuser see every bet; plain members only see APPROVED ones.
// @Tags         bets
// @Produce      json
// @Security     BearerAuth
// @Param        room_id query int true "Room ID"
// @Success      200  {array}   BetResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /bets [get]
func ListBets(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Query("room_id"))
	if err != nil || roomID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id query parameter is required"})
		return
	}

	var room models.Room
	if err := database.DB.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	member, ok := requireMembership(c, room.ID)
	if !ok {
		return
	}

	query := database.DB.Where("room_id = ?", room.ID).Order("id")
	if !member.Role.CanDecideBets() {
		query = query.Where("status = ?", models.BetStatusApproved)
	}

	var bets []models.Bet
	if err := query.Find(&bets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bets"})
		return
	}

	response := make([]BetResponse, 0, len(bets))
	for _, bet := range bets {
		response = append(response, newBetResponse(bet))
	}
	c.JSON(http.StatusOK, response)
}

// DecideBet godoc
// @Summary      Approve or reject a pending bet
// @Description  Transitions a PENDING bet to APPROVED or REJECTED. Approval re-checks and debits the proposer's coins in the same transaction. Only one of two concurrent decisions can win.
// @Tags         bets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Bet ID"
// @Param        input body BetDecisionInput true "Decision"
// @Success      200  {object}  BetResponse
// @Failure      400  {object}  ErrorResponse "Bad status value or insufficient funds"
// @Failure      403  {object}  ErrorResponse "Not an admin or superuser of the bet's room"
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Bet is no longer pending"
// @Router       /bets/{id} [patch]
func DecideBet(c *gin.Context) {
	deciderID := currentUserID(c)
	betID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bet ID"})
		return
	}

	var input BetDecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Status != models.BetStatusApproved && input.Status != models.BetStatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be APPROVED or REJECTED"})
		return
	}

	var bet models.Bet
	if err := database.DB.First(&bet, betID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bet not found"})
		return
	}

	if _, ok := requireBetDecider(c, bet.RoomID); !ok {
		return
	}

	if bet.Status != models.BetStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Bet is not pending"})
		return
	}

	var errInsufficientCoins = errors.New("insufficient coins")
	var errNotPending = errors.New("bet is not pending")

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": input.Status}
		if input.Status == models.BetStatusApproved {
			// The debit and the status flip commit together or not at
			// all. The balance condition re-checks funds at approval
			// time; coins may have moved since the proposal.
			debit := tx.Model(&models.User{}).
				Where("id = ? AND coins >= ?", bet.UserID, bet.Amount).
				UpdateColumn("coins", gorm.Expr("coins - ?", bet.Amount))
			if debit.Error != nil {
				return debit.Error
			}
			if debit.RowsAffected == 0 {
				return errInsufficientCoins
			}
			updates["approved_by"] = deciderID
			updates["start_time"] = time.Now()
		}

		// The PENDING precondition is the optimistic-concurrency guard:
		// of two concurrent deciders, only the first update matches.
		res := tx.Model(&models.Bet{}).
			Where("id = ? AND status = ?", bet.ID, models.BetStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotPending
		}

		verb := "approved"
		if input.Status == models.BetStatusRejected {
			verb = "rejected"
		}
		notification := models.Notification{
			UserID:  bet.UserID,
			BetID:   &bet.ID,
			Type:    models.NotificationTypeBetResult,
			Message: fmt.Sprintf("Your bet '%s' was %s.", bet.Description, verb),
		}
		return tx.Create(&notification).Error
	})
	switch {
	case errors.Is(err, errInsufficientCoins):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Proposer has insufficient coins"})
		return
	case errors.Is(err, errNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Bet is not pending"})
		return
	case err != nil:
		log.Error().Err(err).Uint("bet_id", bet.ID).Msg("failed to decide bet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decide bet"})
		return
	}

	if err := database.DB.First(&bet, bet.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload bet"})
		return
	}

	log.Info().Uint("bet_id", bet.ID).Uint("decider_id", deciderID).Str("status", string(bet.Status)).Msg("bet decided")
	c.JSON(http.StatusOK, newBetResponse(bet))
}
