package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	defaultKestraUsername = "admin@gitverified.local"
	defaultKestraPassword = "testpassword"
)

// Config holds all configuration for the gitverified relay server.
// It is built once by Load and passed by pointer to every component.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Ollama   OllamaConfig
	Kestra   KestraConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	AllowedOrigins []string
	MaxUploadBytes int64
	ProbeTimeout   time.Duration
}

type BackendConfig struct {
	BaseURL string
	// Timeout applies to relayed evaluation calls. Zero means no client timeout;
	// the inbound request context still bounds the call.
	Timeout time.Duration
}

type OllamaConfig struct {
	BaseURL string
}

type KestraConfig struct {
	BaseURL   string
	Namespace string
	Flow      string
	Username  string
	Password  string
	Timeout   time.Duration
}

// UsingDefaultCredentials reports whether the built-in Basic auth pair is in use.
func (k KestraConfig) UsingDefaultCredentials() bool {
	return k.Username == defaultKestraUsername && k.Password == defaultKestraPassword
}

type StorageConfig struct {
	UploadDir       string
	UploadURLPrefix string
}

type PipelineConfig struct {
	DataDir       string
	MountDir      string
	ScriptPath    string
	Interpreters  []string
	ScriptTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL            string
	RequestsPerMin int
}

type WebhookConfig struct {
	TokenHash string
}

// Load reads configuration from the environment (and an optional .env file)
// and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("GITVERIFIED_PORT", 3000),
			Env:            envString("GITVERIFIED_ENV", "development"),
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
			ProbeTimeout:   envDuration("PROBE_TIMEOUT", 5*time.Second),
		},
		Backend: BackendConfig{
			BaseURL: trimURL(envString("BACKEND_URL", "http://localhost:3001")),
			Timeout: envDuration("BACKEND_TIMEOUT", 0),
		},
		Ollama: OllamaConfig{
			BaseURL: trimURL(envString("OLLAMA_BASE_URL", "http://localhost:11434")),
		},
		Kestra: KestraConfig{
			BaseURL:   trimURL(envString("KESTRA_BASE_URL", "http://localhost:8080")),
			Namespace: envString("KESTRA_NAMESPACE", "ai.gitverified"),
			Flow:      envString("KESTRA_FLOW", "gitverified-main-pipeline"),
			Username:  envString("KESTRA_USERNAME", defaultKestraUsername),
			Password:  envString("KESTRA_PASSWORD", defaultKestraPassword),
			Timeout:   envDuration("KESTRA_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:       envString("UPLOAD_DIR", "./public/uploads"),
			UploadURLPrefix: strings.TrimSuffix(envString("UPLOAD_URL_PREFIX", "/uploads"), "/"),
		},
		Pipeline: PipelineConfig{
			DataDir:       envString("PIPELINE_DATA_DIR", "../gitverified-backend/agents/data"),
			MountDir:      strings.TrimSuffix(envString("PIPELINE_MOUNT_DIR", "/app/agents/data"), "/"),
			ScriptPath:    envString("PIPELINE_SCRIPT", "../gitverified-backend/agents/trigger_kestra.py"),
			Interpreters:  envList("PIPELINE_INTERPRETERS", []string{"python", "python3", "py"}),
			ScriptTimeout: envDuration("PIPELINE_SCRIPT_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:            os.Getenv("REDIS_URL"),
			RequestsPerMin: envInt("RATE_LIMIT_PER_MIN", 30),
		},
		Webhook: WebhookConfig{
			TokenHash: os.Getenv("WEBHOOK_TOKEN_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("GITVERIFIED_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	urls := []struct{ name, value string }{
		{"BACKEND_URL", c.Backend.BaseURL},
		{"OLLAMA_BASE_URL", c.Ollama.BaseURL},
		{"KESTRA_BASE_URL", c.Kestra.BaseURL},
	}
	for _, u := range urls {
		if !strings.HasPrefix(u.value, "http://") && !strings.HasPrefix(u.value, "https://") {
			return fmt.Errorf("%s must start with http:// or https://, got %q", u.name, u.value)
		}
	}

	if c.Kestra.Namespace == "" || c.Kestra.Flow == "" {
		return fmt.Errorf("KESTRA_NAMESPACE and KESTRA_FLOW must not be empty")
	}

	if len(c.Pipeline.Interpreters) == 0 {
		return fmt.Errorf("PIPELINE_INTERPRETERS must list at least one interpreter")
	}
	if c.Pipeline.ScriptTimeout <= 0 {
		return fmt.Errorf("PIPELINE_SCRIPT_TIMEOUT must be positive, got %s", c.Pipeline.ScriptTimeout)
	}
	if c.Server.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive, got %s", c.Server.ProbeTimeout)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	items := lo.Map(strings.Split(v, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(items)
}

func trimURL(u string) string {
	return strings.TrimRight(u, "/")
}
