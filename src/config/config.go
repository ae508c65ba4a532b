package config

import (
	"log"
	"os"

	"github.com/commforge/challengebot/src/data"
	"gorm.io/gorm"
)

type Config struct {
	Token          string
	GuildID        string
	AdminUserID    string
	HubChannelID   string
	StartupChannel string
	AdminAPIToken  string
	AdminAPIAddr   string
	MySQLDSN       string
	RedisURL       string
}

// Load reads configuration from the settings table with env fallbacks.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	return Config{
		Token:          settingOrEnv("discord_token", "DISCORD_TOKEN"),
		GuildID:        settingOrEnv("guild_id", "GUILD_ID"),
		AdminUserID:    settingOrEnv("admin_user_id", "ADMIN_USER_ID"),
		HubChannelID:   settingOrEnv("hub_channel_id", "HUB_CHANNEL_ID"),
		StartupChannel: settingOrEnv("startup_channel_id", "STARTUP_CHANNEL_ID"),
		AdminAPIToken:  settingOrEnv("admin_api_token", "ADMIN_API_TOKEN"),
		AdminAPIAddr:   getenv("ADMIN_API_ADDR", ":8090"),
		MySQLDSN:       data.GetMySQLDSN(),
		RedisURL:       getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}
}

func settingOrEnv(setting, env string) string {
	if v := data.GetSetting(setting); v != "" {
		return v
	}
	return os.Getenv(env)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
