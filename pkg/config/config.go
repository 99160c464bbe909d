package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	OpenAI   OpenAIConfig   `json:"openai"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	// Token is the bot API token.
	Token string `json:"token" env:"VIRALBOT_TELEGRAM_TOKEN"`
	// TargetChat is either a numeric chat id ("-100123...") or a public
	// username ("@mychannel"). Only messages from this chat are processed.
	TargetChat string `json:"target_chat" env:"VIRALBOT_TELEGRAM_TARGET_CHAT"`
}

type OpenAIConfig struct {
	APIKey    string `json:"api_key" env:"VIRALBOT_OPENAI_API_KEY"`
	Model     string `json:"model" env:"VIRALBOT_OPENAI_MODEL"`
	MaxTokens int    `json:"max_tokens" env:"VIRALBOT_OPENAI_MAX_TOKENS"`
}

type StorageConfig struct {
	VideosDir       string   `json:"videos_dir" env:"VIRALBOT_STORAGE_VIDEOS_DIR"`
	ImagesDir       string   `json:"images_dir" env:"VIRALBOT_STORAGE_IMAGES_DIR"`
	LogsDir         string   `json:"logs_dir" env:"VIRALBOT_STORAGE_LOGS_DIR"`
	MaxVideoSizeMB  int      `json:"max_video_size_mb" env:"VIRALBOT_STORAGE_MAX_VIDEO_SIZE_MB"`
	VideoFormats    []string `json:"video_formats" env:"VIRALBOT_STORAGE_VIDEO_FORMATS"`
	CleanupSchedule string   `json:"cleanup_schedule" env:"VIRALBOT_STORAGE_CLEANUP_SCHEDULE"`
	RetentionHours  int      `json:"retention_hours" env:"VIRALBOT_STORAGE_RETENTION_HOURS"`
}

type LoggingConfig struct {
	Level       string `json:"level" env:"VIRALBOT_LOGGING_LEVEL"`
	FileEnabled bool   `json:"file_enabled" env:"VIRALBOT_LOGGING_FILE_ENABLED"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:      "",
			TargetChat: "",
		},
		OpenAI: OpenAIConfig{
			APIKey:    "",
			Model:     "gpt-4o",
			MaxTokens: 1000,
		},
		Storage: StorageConfig{
			VideosDir:       "data/videos",
			ImagesDir:       "data/images",
			LogsDir:         "data/logs",
			MaxVideoSizeMB:  50,
			VideoFormats:    []string{"mp4", "avi", "mov", "mkv", "webm"},
			CleanupSchedule: "0 * * * *",
			RetentionHours:  24,
		},
		Logging: LoggingConfig{
			Level:       "INFO",
			FileEnabled: true,
		},
	}
}

// LoadConfig builds the effective configuration: defaults, then the JSON
// config file (if present), then VIRALBOT_* environment variables. A .env
// file in the working directory is loaded first if one exists.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing required setting at once so a broken
// deployment fails fast with a complete list.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "VIRALBOT_TELEGRAM_TOKEN")
	}
	if strings.TrimSpace(c.Telegram.TargetChat) == "" {
		missing = append(missing, "VIRALBOT_TELEGRAM_TARGET_CHAT")
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		missing = append(missing, "VIRALBOT_OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Storage.MaxVideoSizeMB <= 0 {
		return fmt.Errorf("max_video_size_mb must be positive, got %d", c.Storage.MaxVideoSizeMB)
	}
	return nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
