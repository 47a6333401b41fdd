package main

import (
	"sodabet/backend/internal/config"
	"sodabet/backend/internal/database"
	"sodabet/backend/internal/handler"
	"sodabet/backend/internal/jobs"

	"github.com/rs/zerolog/log"

	// Swagger imports
	_ "sodabet/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           SodaBet API
// @version         1.0
// @description     Chat rooms with informal coin wagers mediated by the room superuser.
// @host            localhost:8080
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// Background sweep that notifies mediators of expired bets.
	notifier := jobs.StartBetExpiryNotifier(database.DB)
	defer notifier.Stop()

	router := handler.NewRouter()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	addr := ":" + config.AppConfig.Port
	log.Info().Str("addr", addr).Msg("server is running")
	log.Info().Msgf("Swagger UI is available at http://localhost:%s/swagger/index.html", config.AppConfig.Port)

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
