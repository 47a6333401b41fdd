package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`
	Port                string `mapstructure:"PORT"`
	AccessTokenTTLMins  int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	RefreshTokenTTLDays int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`
	RoomMemberCap       int    `mapstructure:"ROOM_MEMBER_CAP"`
	CORSAllowedOrigins  string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var AppConfig *Config

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 90)
	viper.SetDefault("REFRESH_TOKEN_TTL_DAYS", 3)
	viper.SetDefault("ROOM_MEMBER_CAP", 100)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}
