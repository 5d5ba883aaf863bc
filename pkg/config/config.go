package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	LogLevel  string          `json:"log_level" env:"TABLETALK_LOG_LEVEL"`
	Responder ResponderConfig `json:"responder"`
	Relay     RelayConfig     `json:"relay"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Tools     ToolsConfig     `json:"tools"`
	Profiles  ProfilesConfig  `json:"profiles"`
	mu        sync.RWMutex
}

type ResponderConfig struct {
	Name                string  `json:"name" env:"TABLETALK_RESPONDER_NAME"`
	TriggerWord         string  `json:"trigger_word" env:"TABLETALK_RESPONDER_TRIGGER_WORD"`
	Workspace           string  `json:"workspace" env:"TABLETALK_RESPONDER_WORKSPACE"`
	Provider            string  `json:"provider" env:"TABLETALK_RESPONDER_PROVIDER"`
	Model               string  `json:"model" env:"TABLETALK_RESPONDER_MODEL"`
	MaxTokens           int     `json:"max_tokens" env:"TABLETALK_RESPONDER_MAX_TOKENS"`
	MaxMessages         int     `json:"max_messages" env:"TABLETALK_RESPONDER_MAX_MESSAGES"`
	MaxToolIterations   int     `json:"max_tool_iterations" env:"TABLETALK_RESPONDER_MAX_TOOL_ITERATIONS"`
	PollIntervalSeconds int     `json:"poll_interval_seconds" env:"TABLETALK_RESPONDER_POLL_INTERVAL_SECONDS"`
	LoopTimeoutSeconds  int     `json:"loop_timeout_seconds" env:"TABLETALK_RESPONDER_LOOP_TIMEOUT_SECONDS"`
	Sigma               float64 `json:"sigma" env:"TABLETALK_RESPONDER_SIGMA"`
	ImportanceThreshold float64 `json:"importance_threshold" env:"TABLETALK_RESPONDER_IMPORTANCE_THRESHOLD"`
}

type RelayConfig struct {
	Host string `json:"host" env:"TABLETALK_RELAY_HOST"`
	Port int    `json:"port" env:"TABLETALK_RELAY_PORT"`
}

type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base"`
	Proxy   string `json:"proxy,omitempty"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled" env:"TABLETALK_CHANNELS_DISCORD_ENABLED"`
	Token     string              `json:"token" env:"TABLETALK_CHANNELS_DISCORD_TOKEN"`
	ChannelID string              `json:"channel_id" env:"TABLETALK_CHANNELS_DISCORD_CHANNEL_ID"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"TABLETALK_CHANNELS_DISCORD_ALLOW_FROM"`
}

type ToolsConfig struct {
	Google      GoogleConfig      `json:"google"`
	OpenWeather OpenWeatherConfig `json:"openweather"`
	Group       GroupConfig       `json:"group"`
}

type GoogleConfig struct {
	APIKey string `json:"api_key" env:"TABLETALK_TOOLS_GOOGLE_API_KEY"`
}

type OpenWeatherConfig struct {
	APIKey string `json:"api_key" env:"TABLETALK_TOOLS_OPENWEATHER_API_KEY"`
}

// GroupConfig declares the chat group's members for the calendar and
// directions tools. Busy windows use "HH:MM-HH:MM" in local time.
type GroupConfig struct {
	Members []MemberConfig `json:"members"`
}

type MemberConfig struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Busy    []string `json:"busy"`
}

type ProfilesConfig struct {
	DigestEnabled  bool   `json:"digest_enabled" env:"TABLETALK_PROFILES_DIGEST_ENABLED"`
	DigestSchedule string `json:"digest_schedule" env:"TABLETALK_PROFILES_DIGEST_SCHEDULE"`
	DigestWindow   int    `json:"digest_window" env:"TABLETALK_PROFILES_DIGEST_WINDOW"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Responder: ResponderConfig{
			Name:                "AI",
			TriggerWord:         "@ai",
			Workspace:           "~/.tabletalk",
			Provider:            "anthropic",
			Model:               "",
			MaxTokens:           1024,
			MaxMessages:         100,
			MaxToolIterations:   8,
			PollIntervalSeconds: 2,
			LoopTimeoutSeconds:  90,
			Sigma:               0.3,
			ImportanceThreshold: 0.6,
		},
		Relay: RelayConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{},
			OpenAI:    ProviderConfig{},
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Enabled:   false,
				AllowFrom: FlexibleStringSlice{},
			},
		},
		Tools: ToolsConfig{
			Group: GroupConfig{Members: []MemberConfig{}},
		},
		Profiles: ProfilesConfig{
			DigestEnabled:  false,
			DigestSchedule: "0 6 * * *",
			DigestWindow:   200,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if envErr := env.Parse(cfg); envErr != nil {
				return nil, envErr
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Responder.Workspace)
}

// TranscriptPath is the JSONL chat log inside the workspace.
func (c *Config) TranscriptPath() string {
	return filepath.Join(c.WorkspacePath(), "chat_log.jsonl")
}

// OffsetPath stores the last transcript length already scanned for triggers.
func (c *Config) OffsetPath() string {
	return filepath.Join(c.WorkspacePath(), ".last_processed_line")
}

// SummaryPath holds the rolling conversation summary.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.WorkspacePath(), ".conversation_summary.json")
}

// ProfilesPath is the sqlite database holding food preference profiles.
func (c *Config) ProfilesPath() string {
	return filepath.Join(c.WorkspacePath(), "profiles.db")
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
