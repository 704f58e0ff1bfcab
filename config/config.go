package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the typed view of the loaded configuration.
type Config struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Bot struct {
		AdminChannelID   string `mapstructure:"adminchannelid"`
		CatchupOnStartup bool   `mapstructure:"catchuponstartup"`
		CatchupLimit     int    `mapstructure:"catchuplimit"`
	} `mapstructure:"bot"`
}

// LoadConfig loads configuration from a .env file, config.yaml, and the
// environment. Environment variables override file settings; keys use '.'
// in files and '_' in the environment (database.path -> DATABASE_PATH).
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("database.path", "starboard.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("bot.catchupOnStartup", false)
	viper.SetDefault("bot.catchupLimit", 500)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("No config.yaml found, using environment variables and defaults.")
		} else {
			panic(fmt.Errorf("fatal error reading config file: %w", err))
		}
	}
}

// Typed decodes the merged settings into a Config.
func Typed() (*Config, error) {
	var c Config
	if err := mapstructure.Decode(viper.AllSettings(), &c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return &c, nil
}
