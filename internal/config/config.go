package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application settings, loaded from the environment.
type Config struct {
	Env         string
	BotToken    string
	DatabaseURL string
	RootIDs     []int64

	// Chat id of the operations channel that receives error reports.
	// Optional; zero disables reporting.
	ErrorChannelChatID int64

	// External LMS used by the one-time catalog import.
	LMSBaseURL string
	LMSToken   string

	// Webhook settings, required in production only.
	Port               int
	WebhookSecretToken string
	WebhookURL         string
}

// IsProduction reports whether the bot should run in webhook mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment. Outside production a .env
// file is loaded first if present.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if env != "production" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Env:         env,
		BotToken:    os.Getenv("BOT_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LMSBaseURL:  os.Getenv("LMS_BASE_URL"),
		LMSToken:    os.Getenv("LMS_TOKEN"),
		Port:        8443,
	}

	rootIDs, err := parseIDList(os.Getenv("ROOT_IDS"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid ROOT_IDS: %w", err)
	}
	cfg.RootIDs = rootIDs

	if v := os.Getenv("ERROR_CHANNEL_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid ERROR_CHANNEL_CHAT_ID: %w", err)
		}
		cfg.ErrorChannelChatID = id
	}

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(cfg.RootIDs) == 0 {
		missing = append(missing, "ROOT_IDS")
	}

	if cfg.IsProduction() {
		if v := os.Getenv("PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("config: invalid PORT: %w", err)
			}
			cfg.Port = port
		}
		cfg.WebhookSecretToken = os.Getenv("WEBHOOK_SECRET_TOKEN")
		cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
		if cfg.WebhookSecretToken == "" {
			missing = append(missing, "WEBHOOK_SECRET_TOKEN")
		}
		if cfg.WebhookURL == "" {
			missing = append(missing, "WEBHOOK_URL")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf(
			"config: required environment variables are missing: %s",
			strings.Join(missing, ", "),
		)
	}

	return cfg, nil
}

func parseIDList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
