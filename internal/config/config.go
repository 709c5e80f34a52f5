package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	MigrationsDir  string   `mapstructure:"MIGRATIONS_DIR"`
	DiseasesPath   string   `mapstructure:"DISEASES_PATH"`
	HospitalsPath  string   `mapstructure:"HOSPITALS_PATH"`
	LexiconPath    string   `mapstructure:"LEXICON_PATH"`
	MaxDistanceKm  float64  `mapstructure:"MAX_DISTANCE_KM"`
	AvgSpeedKmh    float64  `mapstructure:"AVG_SPEED_KMH"`
	STTURL         string   `mapstructure:"STT_URL"`
	TTSURL         string   `mapstructure:"TTS_URL"`
	TTSAPIKey      string   `mapstructure:"TTS_API_KEY"`
	TelegramToken  string   `mapstructure:"TELEGRAM_BOT_TOKEN"`
	CareTeamChatID int64    `mapstructure:"CARE_TEAM_CHAT_ID"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "MIGRATIONS_DIR",
	"DISEASES_PATH", "HOSPITALS_PATH", "LEXICON_PATH",
	"MAX_DISTANCE_KM", "AVG_SPEED_KMH",
	"STT_URL", "TTS_URL", "TTS_API_KEY",
	"TELEGRAM_BOT_TOKEN", "CARE_TEAM_CHAT_ID",
	"CORS_ORIGINS",
}

// Load reads the environment, with an optional .env file underneath it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MIGRATIONS_DIR", "file://migrations")
	v.SetDefault("DISEASES_PATH", "data/diseases.json")
	v.SetDefault("HOSPITALS_PATH", "data/hospitals.json")
	v.SetDefault("MAX_DISTANCE_KM", 50)
	v.SetDefault("AVG_SPEED_KMH", 30)
	v.SetDefault("CORS_ORIGINS", "*")

	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Persistent reports whether consultations go to Postgres.
func (c *Config) Persistent() bool {
	return c.DatabaseURL != ""
}

// SpeechEnabled reports whether voice input is configured.
func (c *Config) SpeechEnabled() bool {
	return c.STTURL != ""
}

// ReportsEnabled reports whether care-team reports can be delivered.
func (c *Config) ReportsEnabled() bool {
	return c.TelegramToken != "" && c.CareTeamChatID != 0
}

func (c *Config) Validate() error {
	if c.MaxDistanceKm <= 0 {
		return fmt.Errorf("MAX_DISTANCE_KM must be positive, got %v", c.MaxDistanceKm)
	}
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("AVG_SPEED_KMH must be positive, got %v", c.AvgSpeedKmh)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.TelegramToken != "" && c.CareTeamChatID == 0 {
		return fmt.Errorf("CARE_TEAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
