package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	EventChannel      string
	JWTSecret         string
	EcosystemCacheTTL time.Duration
	FeedCacheTTL      time.Duration
	ClearRateLimit    int
	ClearRateWindow   time.Duration
	SeedEnabled       bool
	SeedToken         string
	CORSAllowOrigins  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CKS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CKS Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "cks:events")
	v.SetDefault("ecosystem.cache_ttl", "2m")
	v.SetDefault("feed.cache_ttl", "45s")
	v.SetDefault("feed.clear_limit", 5)
	v.SetDefault("feed.clear_window", "1m")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("cors.allow_origins", "*")

	ecosystemTTL, err := parseDuration(v, "ecosystem.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	feedTTL, err := parseDuration(v, "feed.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	clearWindow, err := parseDuration(v, "feed.clear_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		EventChannel:      v.GetString("events.channel"),
		JWTSecret:         v.GetString("jwt.secret"),
		EcosystemCacheTTL: ecosystemTTL,
		FeedCacheTTL:      feedTTL,
		ClearRateLimit:    v.GetInt("feed.clear_limit"),
		ClearRateWindow:   clearWindow,
		SeedEnabled:       v.GetBool("seed.enabled"),
		SeedToken:         v.GetString("seed.token"),
		CORSAllowOrigins:  v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ClearRateLimit <= 0 {
		cfg.ClearRateLimit = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
