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

// Config holds all the configuration for the application.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Verification VerificationConfig `mapstructure:"verification"`
	Google       OAuthClientConfig  `mapstructure:"google"`
	Facebook     OAuthClientConfig  `mapstructure:"facebook"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Templates    TemplatesConfig    `mapstructure:"templates"`
	App          AppConfig          `mapstructure:"app"`
	FrontendURL  string             `mapstructure:"frontendurl"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig controls signing and lifetimes of session tokens.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"accessttl"`
	RefreshTTL time.Duration `mapstructure:"refreshttl"`
	PendingTTL time.Duration `mapstructure:"pendingttl"`
}

type AuthConfig struct {
	BcryptCost int `mapstructure:"bcryptcost"`
}

// VerificationConfig controls email tokens, numeric codes and their cleanup.
type VerificationConfig struct {
	EmailTokenTTL time.Duration `mapstructure:"emailtokenttl"`
	CodeTTL       time.Duration `mapstructure:"codettl"`
	SweepInterval time.Duration `mapstructure:"sweepinterval"`
	ResendWindow  time.Duration `mapstructure:"resendwindow"`
	ResendMax     int           `mapstructure:"resendmax"`
}

type OAuthClientConfig struct {
	ClientID     string `mapstructure:"clientid"`
	ClientSecret string `mapstructure:"clientsecret"`
	RedirectURL  string `mapstructure:"redirecturl"`
}

type SMTPConfig struct {
	From     string `mapstructure:"from"`
	Password string `mapstructure:"password"`
	Username string `mapstructure:"username"`
	Port     int    `mapstructure:"port"`
	Host     string `mapstructure:"host"`
}

type TemplatesConfig struct {
	Dir    string `mapstructure:"dir"`
	Reload bool   `mapstructure:"reload"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
}

// envBindings maps structured keys to the environment variables that feed them.
var envBindings = map[string]string{
	"server.port":                "SERVER_PORT",
	"server.env":                 "SERVER_ENV",
	"database.url":               "DATABASE_URL",
	"redis.url":                  "REDIS_URL",
	"jwt.secret":                 "JWT_SECRET",
	"jwt.issuer":                 "JWT_ISSUER",
	"jwt.accessttl":              "JWT_ACCESS_TTL",
	"jwt.refreshttl":             "JWT_REFRESH_TTL",
	"jwt.pendingttl":             "JWT_PENDING_TTL",
	"auth.bcryptcost":            "AUTH_BCRYPT_COST",
	"verification.emailtokenttl": "VERIFICATION_EMAIL_TOKEN_TTL",
	"verification.codettl":       "VERIFICATION_CODE_TTL",
	"verification.sweepinterval": "VERIFICATION_SWEEP_INTERVAL",
	"verification.resendwindow":  "VERIFICATION_RESEND_WINDOW",
	"verification.resendmax":     "VERIFICATION_RESEND_MAX",
	"google.clientid":            "GOOGLE_CLIENT_ID",
	"google.clientsecret":        "GOOGLE_CLIENT_SECRET",
	"google.redirecturl":         "GOOGLE_REDIRECT_URL",
	"facebook.clientid":          "FACEBOOK_CLIENT_ID",
	"facebook.clientsecret":      "FACEBOOK_CLIENT_SECRET",
	"facebook.redirecturl":       "FACEBOOK_REDIRECT_URL",
	"smtp.from":                  "SMTP_FROM",
	"smtp.password":              "SMTP_PASSWORD",
	"smtp.username":              "SMTP_USERNAME",
	"smtp.port":                  "SMTP_PORT",
	"smtp.host":                  "SMTP_HOST",
	"templates.dir":              "TEMPLATES_DIR",
	"templates.reload":           "TEMPLATES_RELOAD",
	"app.name":                   "APP_NAME",
	"frontendurl":                "FRONTEND_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("jwt.issuer", "lms-api")
	v.SetDefault("jwt.accessttl", 24*time.Hour)
	v.SetDefault("jwt.refreshttl", 7*24*time.Hour)
	v.SetDefault("jwt.pendingttl", 5*time.Minute)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("verification.emailtokenttl", 24*time.Hour)
	v.SetDefault("verification.codettl", 5*time.Minute)
	v.SetDefault("verification.sweepinterval", 30*time.Minute)
	v.SetDefault("verification.resendwindow", time.Minute)
	v.SetDefault("verification.resendmax", 3)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("app.name", "LMS")
	v.SetDefault("frontendurl", "http://localhost:3000")
}

// Load creates a new Config object from the .env file and environment variables.
// It exits the process when required settings are missing.
func Load() *Config {
	// Load .env into process environment for BindEnv to work with file-based envs
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	} else {
		log.Printf("ℹ️ .env loaded into process environment via godotenv")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Println("✅ Configuration loaded successfully")
	return cfg
}

// FromEnv reads configuration from ./.env and the process environment, then validates it.
func FromEnv() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	// Use a replacer to map env vars like SERVER_PORT to Server.Port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		// We can still proceed if all config is set via environment variables.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required settings and clamps unsafe values.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Redis.URL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Auth.BcryptCost < 10 {
		c.Auth.BcryptCost = 10
	}
	if c.JWT.PendingTTL <= 0 || c.JWT.PendingTTL > 5*time.Minute {
		c.JWT.PendingTTL = 5 * time.Minute
	}
	return nil
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}
