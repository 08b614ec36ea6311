package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/john/chatbridge/internal/kick"
)

// Config holds the application configuration
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Discord  DiscordConfig  `yaml:"discord"`
	Twitch   TwitchConfig   `yaml:"twitch"`
	Kick     KickConfig     `yaml:"kick"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Recorder RecorderConfig `yaml:"recorder"`
	S3       S3Config       `yaml:"s3"`
	Uploader UploaderConfig `yaml:"uploader"`
	Health   HealthConfig   `yaml:"health"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// DiscordConfig holds Discord bot configuration
type DiscordConfig struct {
	Token              string `yaml:"token" validate:"required"`
	StickerRenderProxy string `yaml:"sticker_render_proxy" validate:"omitempty,url"` // Viewer for lottie stickers
}

// TwitchConfig holds Twitch-specific configuration
type TwitchConfig struct {
	Username string   `yaml:"username" validate:"required"`
	OAuth    string   `yaml:"oauth" validate:"required"`
	Channels []string `yaml:"channels"` // Extra channels to archive without relaying
}

// KickConfig holds Kick configuration. Kick chat is archived, never relayed.
type KickConfig struct {
	Enabled  bool                 `yaml:"enabled"`
	Channels []kick.ChannelConfig `yaml:"channels" validate:"required_if=Enabled true,dive"`
}

// BridgeConfig holds the channel pairs to relay between
type BridgeConfig struct {
	Links []Link `yaml:"links" validate:"required,min=1,dive"`
}

// Link pairs a Discord channel with a Twitch channel
type Link struct {
	DiscordChannelID string `yaml:"discord_channel_id" validate:"required,numeric"`
	TwitchChannel    string `yaml:"twitch_channel" validate:"required"`
}

// S3Config holds S3 upload configuration. Uploading is disabled when Bucket is empty.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region" validate:"required_with=Bucket"`
	RoleARN         string `yaml:"role_arn"`          // IAM role ARN for OIDC authentication
	AccessKeyID     string `yaml:"access_key_id"`     // Legacy: static credentials
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"` // For S3-compatible services
}

// RecorderConfig holds archive recorder configuration
type RecorderConfig struct {
	OutputDir       string `yaml:"output_dir"`
	RotateMinutes   int    `yaml:"rotate_minutes" validate:"gt=0"`
	RotateMegabytes int    `yaml:"rotate_megabytes" validate:"gt=0"`
	BufferSize      int    `yaml:"buffer_size" validate:"gt=0"`
}

// UploaderConfig holds uploader configuration
type UploaderConfig struct {
	DeleteAfterUpload bool `yaml:"delete_after_upload"`
	MaxRetries        int  `yaml:"max_retries" validate:"gte=0"`
}

// HealthConfig holds the health server configuration
type HealthConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Enabled reports whether archives are uploaded to S3
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// DiscordChannelIDs returns the Discord channels the bridge listens to
func (c *Config) DiscordChannelIDs() []string {
	ids := make([]string, 0, len(c.Bridge.Links))
	for _, l := range c.Bridge.Links {
		ids = append(ids, l.DiscordChannelID)
	}
	return ids
}

// TwitchChannels returns every Twitch channel to join, linked ones first
func (c *Config) TwitchChannels() []string {
	seen := make(map[string]bool)
	var channels []string
	for _, l := range c.Bridge.Links {
		if !seen[l.TwitchChannel] {
			seen[l.TwitchChannel] = true
			channels = append(channels, l.TwitchChannel)
		}
	}
	for _, ch := range c.Twitch.Channels {
		if !seen[ch] {
			seen[ch] = true
			channels = append(channels, ch)
		}
	}
	return channels
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration, applies environment overrides and defaults, then validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"DISCORD_TOKEN":        &cfg.Discord.Token,
		"TWITCH_OAUTH":         &cfg.Twitch.OAuth,
		"AWS_ROLE_ARN":         &cfg.S3.RoleARN,
		"S3_ACCESS_KEY_ID":     &cfg.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &cfg.S3.SecretAccessKey,
		"LOG_LEVEL":            &cfg.Log.Level,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Recorder.BufferSize == 0 {
		cfg.Recorder.BufferSize = 100
	}
	if cfg.Recorder.RotateMinutes == 0 {
		cfg.Recorder.RotateMinutes = 60
	}
	if cfg.Recorder.RotateMegabytes == 0 {
		cfg.Recorder.RotateMegabytes = 100
	}
	if cfg.Recorder.OutputDir == "" {
		cfg.Recorder.OutputDir = "./data"
	}
	if cfg.Uploader.MaxRetries == 0 {
		cfg.Uploader.MaxRetries = 3
	}
	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":8080"
	}
}
