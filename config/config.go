package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default API endpoints.
const (
	DefaultBaseURL   = "https://api.aori.io"
	DefaultWSBaseURL = "wss://api.aori.io"
)

// Config holds engine configuration resolved from the environment. All
// fields can equally be supplied directly through engine options; this
// loader is a convenience for processes configured via env vars or a
// .aori.yaml file.
type Config struct {
	BaseURL    string
	WSBaseURL  string
	APIKey     string
	LoadTokens bool
}

// Load reads configuration from AORI_* environment variables and an optional
// .aori config file in the home or working directory. A .env file is applied
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(".aori")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("ws_base_url", DefaultWSBaseURL)
	v.SetDefault("load_tokens", false)

	v.SetEnvPrefix("AORI")
	v.AutomaticEnv()

	// Config file is optional.
	_ = v.ReadInConfig()

	return &Config{
		BaseURL:    v.GetString("base_url"),
		WSBaseURL:  v.GetString("ws_base_url"),
		APIKey:     v.GetString("api_key"),
		LoadTokens: v.GetBool("load_tokens"),
	}, nil
}
