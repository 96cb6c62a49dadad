// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime configuration, read from the environment (and .env in dev).
type Config struct {
	Env            string
	Port           int
	DatabaseDriver string
	DatabaseURL    string
	GatewayToken   string
	AllowedOrigins []string

	AuthServiceURL   string
	AuthServiceToken string

	ProfileSync ProfileSyncConfig

	R2 R2Config

	TierReconcileInterval time.Duration
}

// ProfileSyncConfig points at the profile service's change feed.
type ProfileSyncConfig struct {
	URL      string
	Path     string
	Token    string
	Interval time.Duration
}

func (c ProfileSyncConfig) Enabled() bool {
	return c.URL != ""
}

// R2Config holds Cloudflare R2 (S3-compatible) credentials for activity exports.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether every R2 credential is present.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", 5200)
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TIER_RECONCILE_INTERVAL", "15m")
	v.SetDefault("PROFILE_SYNC_PATH", "/api/v1/public/profiles")
	v.SetDefault("PROFILE_SYNC_INTERVAL", "1m")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:              v.GetString("APP_ENV"),
		Port:             v.GetInt("PORT"),
		DatabaseDriver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		GatewayToken:     v.GetString("GATEWAY_TOKEN"),
		AllowedOrigins:   splitList(v.GetString("ALLOWED_ORIGINS")),
		AuthServiceURL:   strings.TrimRight(v.GetString("AUTH_SERVICE_URL"), "/"),
		AuthServiceToken: v.GetString("AUTH_SERVICE_TOKEN"),
		ProfileSync: ProfileSyncConfig{
			URL:      strings.TrimRight(v.GetString("PROFILE_SYNC_URL"), "/"),
			Path:     v.GetString("PROFILE_SYNC_PATH"),
			Token:    v.GetString("PROFILE_SYNC_TOKEN"),
			Interval: v.GetDuration("PROFILE_SYNC_INTERVAL"),
		},
		R2: R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
		},
		TierReconcileInterval: v.GetDuration("TIER_RECONCILE_INTERVAL"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GatewayToken == "" {
		return errors.New("GATEWAY_TOKEN environment variable not set")
	}
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable not set")
		}
	case "sqlite":
		if c.DatabaseURL == "" {
			c.DatabaseURL = "bean.db"
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.ProfileSync.Enabled() && c.ProfileSync.Interval <= 0 {
		return fmt.Errorf("PROFILE_SYNC_INTERVAL must be positive, got %s", c.ProfileSync.Interval)
	}
	if c.TierReconcileInterval <= 0 {
		return fmt.Errorf("TIER_RECONCILE_INTERVAL must be positive, got %s", c.TierReconcileInterval)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
