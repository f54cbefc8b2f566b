package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	S3       S3Config
	JWT      JWTConfig
	Rate     RateConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type FirebaseConfig struct {
	ProjectID         string
	CredentialsPath   string
	FirestoreDatabase string
	// Emulator support for integration testing
	UseEmulator           bool
	EmulatorAuthHost      string
	EmulatorFirestoreHost string
}

type RedisConfig struct {
	Addr     string // empty disables the read mirror
	Password string
	DB       int
}

type S3Config struct {
	Region          string
	Bucket          string // empty disables image uploads
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type JWTConfig struct {
	SigningKey string // secret key for session token signing
	Issuer     string // session token issuer claim
	TTLMinutes int    // session token lifetime
}

type RateConfig struct {
	RequestsPerSecond int // per-client limit on mutating endpoints
	Burst             int
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Firebase: FirebaseConfig{
			ProjectID:             getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath:       getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			FirestoreDatabase:     getEnv("FIRESTORE_DATABASE", "(default)"),
			UseEmulator:           getEnvBool("USE_FIREBASE_EMULATOR", false),
			EmulatorAuthHost:      getEnv("FIREBASE_AUTH_EMULATOR_HOST", "localhost:9099"),
			EmulatorFirestoreHost: getEnv("FIRESTORE_EMULATOR_HOST", "localhost:8081"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-southeast-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", ""),
			Issuer:     getEnv("JWT_ISSUER", "api.kindbox.app"),
			TTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60),
		},
		Rate: RateConfig{
			RequestsPerSecond: getEnvInt("RATE_LIMIT_RPS", 5),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}
