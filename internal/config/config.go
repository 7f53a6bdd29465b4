package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storelinker-service/internal/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

// LegacyConfig gates the compatibility paths kept for old accounts. Every
// flag is off unless the operator opts in, and none may be on in production.
type LegacyConfig struct {
	PlaintextPasswordFallback bool
	EmergencyLogin            bool
	TestPasswords             []string
}

func (l LegacyConfig) AnyEnabled() bool {
	return l.PlaintextPasswordFallback || l.EmergencyLogin
}

type AppConfig struct {
	// Server
	HTTPAddr    string
	Env         string
	CORSOrigins []string

	// Mongo
	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	// Redis
	RedisAddr string
	RedisPass string

	// JWT
	JWT jwt.Config

	BcryptCost        int
	ReconcileInterval time.Duration

	// Login throttling per ip+email
	LoginMaxAttempts int
	LoginWindow      time.Duration

	// Bootstrap admin, skipped when either is empty
	AdminEmail    string
	AdminPassword string

	Legacy LegacyConfig
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":5000"),
		Env:         strings.ToLower(getEnv("APP_ENV", "development")),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "storelinker"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", false),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", "storelinker"),
			TTL:    getEnvDuration("JWT_TTL", jwt.DefaultTTL),
		},

		BcryptCost:        getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      getEnvDuration("LOGIN_WINDOW", 15*time.Minute),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Legacy: LegacyConfig{
			PlaintextPasswordFallback: getEnvBool("LEGACY_PLAINTEXT_FALLBACK", false),
			EmergencyLogin:            getEnvBool("LEGACY_EMERGENCY_LOGIN", false),
			TestPasswords:             getEnvSlice("LEGACY_TEST_PASSWORDS", nil),
		},
	}
}

func (c AppConfig) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate reports configuration the service must not start with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWT.Secret) < jwt.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", jwt.MinSecretLength))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.IsProduction() && c.Legacy.AnyEnabled() {
		errs = append(errs, errors.New("legacy login compatibility flags cannot be enabled in production"))
	}
	if c.Legacy.EmergencyLogin && len(c.Legacy.TestPasswords) == 0 {
		errs = append(errs, errors.New("LEGACY_EMERGENCY_LOGIN requires LEGACY_TEST_PASSWORDS"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
