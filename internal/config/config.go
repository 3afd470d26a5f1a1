package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	Env     string
	Oracle  OracleConfig
	Archive ArchiveConfig
	Session SessionConfig
}

type OracleConfig struct {
	// Provider selects the backend: "gemini", "groq" or "fake".
	Provider    string
	Model       string
	Temperature float32
	// MaxOutputTokens keeps responses terse; the instruction envelope
	// fits comfortably in 300 tokens.
	MaxOutputTokens int
	Timeout         time.Duration
	Retries         int
	RPS             float64
	Burst           int
}

type ArchiveConfig struct {
	// Path is the JSON file used when no Postgres DSN is configured
	// (ARCHIVE_PG_DSN).
	Path string
	S3   S3Config
}

type S3Config struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxQuestions  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	switch {
	case port == "":
		port = ":8081"
	case !strings.HasPrefix(port, ":"):
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:    port,
		Env:     env,
		Oracle:  loadOracleConfig(),
		Archive: loadArchiveConfig(env),
		Session: loadSessionConfig(),
	}, nil
}

func loadOracleConfig() OracleConfig {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("ORACLE_PROVIDER")))
	if provider == "" {
		provider = "groq"
	}
	model := strings.TrimSpace(os.Getenv("ORACLE_MODEL"))
	if model == "" {
		switch provider {
		case "gemini":
			model = "gemini-2.5-flash"
		default:
			model = "qwen/qwen3-32b"
		}
	}
	return OracleConfig{
		Provider:        provider,
		Model:           model,
		Temperature:     float32(envFloat("ORACLE_TEMPERATURE", 0.2)),
		MaxOutputTokens: envInt("ORACLE_MAX_TOKENS", 300),
		Timeout:         envDuration("ORACLE_TIMEOUT", 30*time.Second),
		Retries:         envInt("ORACLE_RETRIES", 1),
		RPS:             envFloat("ORACLE_RPS", 0),
		Burst:           envInt("ORACLE_BURST", 0),
	}
}

func loadArchiveConfig(env string) ArchiveConfig {
	path := strings.TrimSpace(os.Getenv("ARCHIVE_PATH"))
	if path == "" {
		path = "data/finished_games.json"
	}
	return ArchiveConfig{
		Path: path,
		S3:   loadS3Config(env),
	}
}

func loadS3Config(env string) S3Config {
	endpoint := resolveS3Endpoint(env)
	return S3Config{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "twentyq-games"),
		UseSSL:    resolveS3UseSSL(env),
	}
}

func resolveS3Endpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARCHIVE_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT"))
}

func resolveS3UseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARCHIVE_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout:   envDuration("SESSION_IDLE_TIMEOUT", 60*time.Minute),
		SweepInterval: envDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		MaxQuestions:  envInt("GAME_MAX_QUESTIONS", 20),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
