package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// SSN protection subsystem. The encryption key is a fatal configuration
	// error when missing or shorter than 32 characters outside development.
	SSNEncryptionKey  string `mapstructure:"SSN_ENCRYPTION_KEY"`
	SSNEncryptionSalt string `mapstructure:"SSN_ENCRYPTION_SALT"`
	SSNKeyVersion     int    `mapstructure:"SSN_KEY_VERSION"`
	SSNHashSalt       string `mapstructure:"SSN_HASH_SALT"`

	SSNDecryptMaxAttempts   int `mapstructure:"SSN_DECRYPT_MAX_ATTEMPTS"`
	SSNDecryptWindowSeconds int `mapstructure:"SSN_DECRYPT_WINDOW_SECONDS"`

	RedisURL string `mapstructure:"REDIS_URL"`
}

// Development-only SSN crypto material, substituted when ENV=development and
// no key is configured. Validate rejects these values outside development.
const (
	devSSNEncryptionKey  = "dev-only-insecure-ssn-key-0123456789"
	devSSNEncryptionSalt = "dev-only-insecure-salt"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SSN_KEY_VERSION", 1)
	v.SetDefault("SSN_DECRYPT_MAX_ATTEMPTS", 10)
	v.SetDefault("SSN_DECRYPT_WINDOW_SECONDS", 60)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SSN_ENCRYPTION_KEY")
	v.BindEnv("SSN_ENCRYPTION_SALT")
	v.BindEnv("SSN_KEY_VERSION")
	v.BindEnv("SSN_HASH_SALT")
	v.BindEnv("SSN_DECRYPT_MAX_ATTEMPTS")
	v.BindEnv("SSN_DECRYPT_WINDOW_SECONDS")
	v.BindEnv("REDIS_URL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		cfg.applyDevDefaults()
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		if cfg.SSNEncryptionKey == devSSNEncryptionKey {
			log.Println("WARNING: SSN_ENCRYPTION_KEY not set; using the insecure dev default.")
		}
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// applyDevDefaults fills in crypto material a developer has not configured,
// so a bare ENV=development instance starts without a .env full of secrets.
// Only called in development; Validate rejects the substitutes elsewhere.
func (c *Config) applyDevDefaults() {
	if c.SSNEncryptionKey == "" {
		c.SSNEncryptionKey = devSSNEncryptionKey
	}
	if c.SSNEncryptionSalt == "" {
		c.SSNEncryptionSalt = devSSNEncryptionSalt
	}
	if c.SSNHashSalt == "" {
		c.SSNHashSalt = devSSNEncryptionSalt
	}
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// the SSN encryption key must be present and at least 32 characters, and
// real JWT authentication must be configured via either a signing key or an
// issuer/JWKS pair.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthSigningKey == "" && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf(
				"authentication is not configured (current ENV=%q): set AUTH_SIGNING_KEY "+
					"or AUTH_ISSUER/AUTH_JWKS_URL. Refusing to start without authentication", c.Env)
		}
		if c.SSNEncryptionKey == "" {
			return fmt.Errorf("SSN_ENCRYPTION_KEY is required when ENV is not development")
		}
		if c.SSNEncryptionKey == devSSNEncryptionKey {
			return fmt.Errorf("SSN_ENCRYPTION_KEY is the insecure development default; set a real key when ENV is not development")
		}
	}
	if c.SSNEncryptionKey != "" && len(c.SSNEncryptionKey) < 32 {
		return fmt.Errorf("SSN_ENCRYPTION_KEY must be at least 32 characters, got %d", len(c.SSNEncryptionKey))
	}
	if c.SSNKeyVersion < 1 {
		return fmt.Errorf("SSN_KEY_VERSION must be >= 1, got %d", c.SSNKeyVersion)
	}
	if c.SSNDecryptMaxAttempts < 1 {
		return fmt.Errorf("SSN_DECRYPT_MAX_ATTEMPTS must be >= 1, got %d", c.SSNDecryptMaxAttempts)
	}
	if c.SSNDecryptWindowSeconds < 1 {
		return fmt.Errorf("SSN_DECRYPT_WINDOW_SECONDS must be >= 1, got %d", c.SSNDecryptWindowSeconds)
	}
	return nil
}
