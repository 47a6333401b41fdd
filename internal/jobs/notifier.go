package jobs

import (
	"fmt"
	"time"

	"sodabet/backend/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StartBetExpiryNotifier schedules the mediator-notification sweep.
// Bet end times are checked by the clock, not by request traffic, so a
// periodic job is what turns "the timer expired" into a notification.
func StartBetExpiryNotifier(db *gorm.DB) *cron.Cron {
	c := cron.New()

	c.AddFunc("@every 1m", func() {
		if err := NotifyExpiredBets(db); err != nil {
			log.Error().Err(err).Msg("bet expiry sweep failed")
		}
	})

	c.Start()
	return c
}

// NotifyExpiredBets creates a bet_result notification for the mediator
// of every bet whose end time has passed and which has not been
// notified yet. The existing-notification check makes the sweep
// idempotent.
func NotifyExpiredBets(db *gorm.DB) error {
	var bets []models.Bet
	err := db.
		Where("end_time <= ? AND status IN ?", time.Now(), []models.BetStatus{models.BetStatusPending, models.BetStatusApproved}).
		Where("NOT EXISTS (SELECT 1 FROM notifications WHERE notifications.bet_id = bets.id AND notifications.user_id = bets.mediator_id AND notifications.type = ?)",
			models.NotificationTypeBetResult).
		Find(&bets).Error
	if err != nil {
		return err
	}

	for _, bet := range bets {
		notification := models.Notification{
			UserID:  bet.MediatorID,
			BetID:   &bet.ID,
			Type:    models.NotificationTypeBetResult,
			Message: fmt.Sprintf("Bet '%s' has ended. Please select the winner.", bet.Description),
		}
		if err := db.Create(&notification).Error; err != nil {
			return err
		}
		log.Info().Uint("bet_id", bet.ID).Uint("mediator_id", bet.MediatorID).Msg("mediator notified of expired bet")
	}
	return nil
}
