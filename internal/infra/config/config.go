package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig is the single configuration struct, constructed once at
// process start and passed by injection. Credentials are validated at
// the boundary that needs them, not here, so offline commands work
// without a full environment.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	DBPath string `envconfig:"DB_PATH" default:"data/messages.db"`

	WindowDays    int `envconfig:"WINDOW_DAYS" default:"7"`
	TopNMessages  int `envconfig:"TOP_N_MESSAGES" default:"12"`
	MaxPerChannel int `envconfig:"MAX_PER_CHANNEL" default:"0"`

	Telegram struct {
		BotToken     string `envconfig:"TG_BOT_TOKEN"`
		SourceChatID string `envconfig:"SOURCE_CHAT_ID"`
		APIID        int    `envconfig:"TG_API_ID"`
		APIHash      string `envconfig:"TG_API_HASH"`
		SessionPath  string `envconfig:"TG_SESSION_PATH" default:"data/tg.session"`
	} `envconfig:""`

	Polling struct {
		Timeout int `envconfig:"POLLING_TIMEOUT" default:"30"`
	} `envconfig:""`

	DeepSeek struct {
		APIKey  string        `envconfig:"DEEPSEEK_API_KEY"`
		Model   string        `envconfig:"DEEPSEEK_MODEL" default:"deepseek-chat"`
		BaseURL string        `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
		Timeout time.Duration `envconfig:"DIGEST_TIMEOUT" default:"120s"`
	} `envconfig:""`

	TargetChatID string `envconfig:"HIGHLIGHT_TARGET_CHAT_ID"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads the configuration from the environment.
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// RequireBotToken fails fast when the Bot API credential is missing.
func (c AppConfig) RequireBotToken() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TG_BOT_TOKEN is required for this command")
	}
	return nil
}

// RequireAPICredentials fails fast when MTProto credentials are missing.
func (c AppConfig) RequireAPICredentials() error {
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		return fmt.Errorf("TG_API_ID and TG_API_HASH are required to use the Telegram client")
	}
	return nil
}

// RequireDeepSeekKey fails fast when the summarizer credential is missing.
func (c AppConfig) RequireDeepSeekKey() error {
	if c.DeepSeek.APIKey == "" {
		return fmt.Errorf("DEEPSEEK_API_KEY must be set to build digests")
	}
	return nil
}
