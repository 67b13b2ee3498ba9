package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Ring     RingConfig
	Pushover PushoverConfig
	Twilio   TwilioConfig
	Monitor  MonitorConfig
	Video    VideoConfig
	Viewer   ViewerConfig
	LogLevel string
}

type RingConfig struct {
	Username  string
	Password  string
	TokenFile string
}

type PushoverConfig struct {
	UserKey  string
	APIToken string
}

func (p PushoverConfig) Enabled() bool {
	return p.UserKey != "" && p.APIToken != ""
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != "" && t.To != ""
}

type MonitorConfig struct {
	Interval     time.Duration
	HistoryLimit int
}

type VideoConfig struct {
	Enabled      bool
	Dir          string
	MaxStorageGB float64
}

type ViewerConfig struct {
	ListenAddr   string
	PasswordHash string
}

// envBindings maps config keys to the environment variables the original
// deployment scripts already use.
var envBindings = map[string]string{
	"ring.username":         "RING_USERNAME",
	"ring.password":         "RING_PASSWORD",
	"ring.token_file":       "RING_TOKEN_FILE",
	"pushover.user_key":     "PUSHOVER_USER_KEY",
	"pushover.api_token":    "PUSHOVER_API_TOKEN",
	"twilio.account_sid":    "TWILIO_ACCOUNT_SID",
	"twilio.auth_token":     "TWILIO_AUTH_TOKEN",
	"twilio.from":           "TWILIO_FROM_NUMBER",
	"twilio.to":             "TWILIO_TO_NUMBER",
	"monitor.interval":      "CHECK_INTERVAL",
	"monitor.history_limit": "HISTORY_LIMIT",
	"video.enabled":         "DOWNLOAD_VIDEOS",
	"video.dir":             "VIDEOS_DIR",
	"video.max_storage_gb":  "MAX_STORAGE_GB",
	"viewer.listen_addr":    "LISTEN_ADDR",
	"viewer.password_hash":  "VIEWER_PASSWORD_HASH",
	"log.level":             "LOG_LEVEL",
}

// Load reads configuration from an optional YAML file plus environment
// variables. cfgFile may be empty, in which case ./ringwatch.yaml is used
// when present.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("ringwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("ring.token_file", "ring_token.cache")
	v.SetDefault("monitor.interval", "10s")
	v.SetDefault("monitor.history_limit", 5)
	v.SetDefault("video.enabled", true)
	v.SetDefault("video.dir", "./ring_videos")
	v.SetDefault("video.max_storage_gb", 10.0)
	v.SetDefault("viewer.listen_addr", ":5000")
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		// No ringwatch.yaml in the working directory is fine; a malformed
		// one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Ring: RingConfig{
			Username:  v.GetString("ring.username"),
			Password:  v.GetString("ring.password"),
			TokenFile: v.GetString("ring.token_file"),
		},
		Pushover: PushoverConfig{
			UserKey:  v.GetString("pushover.user_key"),
			APIToken: v.GetString("pushover.api_token"),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("twilio.account_sid"),
			AuthToken:  v.GetString("twilio.auth_token"),
			From:       v.GetString("twilio.from"),
			To:         v.GetString("twilio.to"),
		},
		Monitor: MonitorConfig{
			Interval:     v.GetDuration("monitor.interval"),
			HistoryLimit: v.GetInt("monitor.history_limit"),
		},
		Video: VideoConfig{
			Enabled:      v.GetBool("video.enabled"),
			Dir:          v.GetString("video.dir"),
			MaxStorageGB: v.GetFloat64("video.max_storage_gb"),
		},
		Viewer: ViewerConfig{
			ListenAddr:   v.GetString("viewer.listen_addr"),
			PasswordHash: v.GetString("viewer.password_hash"),
		},
		LogLevel: v.GetString("log.level"),
	}

	if cfg.Monitor.Interval <= 0 {
		cfg.Monitor.Interval = 10 * time.Second
	}
	if cfg.Monitor.HistoryLimit <= 0 {
		cfg.Monitor.HistoryLimit = 5
	}

	return cfg, nil
}
