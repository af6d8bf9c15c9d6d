package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the hirepipe server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Oracle    OracleConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	Stages    StagesConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL           string
	ScoreCacheTTL time.Duration
}

type RabbitMQConfig struct {
	URL                string
	EventsQueue        string
	NotificationsQueue string
}

type OracleConfig struct {
	Provider string
	Timeout  time.Duration
	Gemini   GeminiConfig
	Vertex   VertexConfig
	OpenAI   OpenAIConfig
	Ollama   OllamaConfig
	VLLM     VLLMConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type VertexConfig struct {
	Project  string
	Location string
	Model    string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type WorkerConfig struct {
	PoolSize       int
	OracleRatePerS float64
	OracleBurst    int
}

type RateLimitConfig struct {
	RequestsPerMin int
}

type StagesConfig struct {
	TemplateFile string
}

var validProviders = map[string]bool{
	"gemini": true,
	"vertex": true,
	"openai": true,
	"ollama": true,
	"vllm":   true,
	"mock":   true,
}

var validDrivers = map[string]bool{
	"postgres": true,
	"memory":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("HIREPIPE_PORT", 8080),
			Env:      envString("HIREPIPE_ENV", "development"),
			LogLevel: envString("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Driver:          envString("STORE_DRIVER", "postgres"),
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL:           os.Getenv("REDIS_URL"),
			ScoreCacheTTL: envDuration("SCORE_CACHE_TTL", time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                os.Getenv("RABBITMQ_URL"),
			EventsQueue:        envString("RABBITMQ_EVENTS_QUEUE", "application_events"),
			NotificationsQueue: envString("RABBITMQ_NOTIFICATIONS_QUEUE", "application_notifications"),
		},
		Oracle: OracleConfig{
			Provider: os.Getenv("ORACLE_PROVIDER"),
			Timeout:  envDurationSecs("ORACLE_TIMEOUT_SECS", 60*time.Second),
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
			},
			Vertex: VertexConfig{
				Project:  os.Getenv("VERTEX_PROJECT"),
				Location: envString("VERTEX_LOCATION", "us-central1"),
				Model:    envString("VERTEX_MODEL", "gemini-2.5-flash"),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000"),
				Model:   envString("VLLM_MODEL", ""),
			},
		},
		Worker: WorkerConfig{
			PoolSize:       envInt("WORKER_POOL_SIZE", 4),
			OracleRatePerS: envFloat("ORACLE_RATE_PER_SEC", 2),
			OracleBurst:    envInt("ORACLE_RATE_BURST", 4),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMin: envInt("RATE_LIMIT_PER_MIN", 60),
		},
		Stages: StagesConfig{
			TemplateFile: os.Getenv("STAGE_TEMPLATE_FILE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("STORE_DRIVER must be one of postgres, memory; got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.RabbitMQ.URL != "" && !strings.HasPrefix(c.RabbitMQ.URL, "amqp://") && !strings.HasPrefix(c.RabbitMQ.URL, "amqps://") {
		return fmt.Errorf("RABBITMQ_URL must start with amqp:// or amqps://, got %q", c.RabbitMQ.URL)
	}

	if c.Oracle.Provider == "" {
		return fmt.Errorf("ORACLE_PROVIDER is required")
	}
	if !validProviders[c.Oracle.Provider] {
		return fmt.Errorf("ORACLE_PROVIDER must be one of gemini, vertex, openai, ollama, vllm, mock; got %q", c.Oracle.Provider)
	}
	if c.Oracle.Provider == "gemini" && c.Oracle.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when ORACLE_PROVIDER is gemini")
	}
	if c.Oracle.Provider == "vertex" && c.Oracle.Vertex.Project == "" {
		return fmt.Errorf("VERTEX_PROJECT is required when ORACLE_PROVIDER is vertex")
	}
	if c.Oracle.Provider == "openai" && c.Oracle.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when ORACLE_PROVIDER is openai")
	}
	if c.Oracle.Provider == "vllm" && c.Oracle.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when ORACLE_PROVIDER is vllm")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT_SECS must be positive")
	}

	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got %d", c.Worker.PoolSize)
	}
	if c.Worker.OracleRatePerS <= 0 {
		return fmt.Errorf("ORACLE_RATE_PER_SEC must be positive")
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

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
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

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
