package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Matcher  MatcherConfig  `mapstructure:"matcher"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	Path         string        `mapstructure:"path"`
	UseInMemory  bool          `mapstructure:"use_in_memory"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type MemoryConfig struct {
	Window      int    `mapstructure:"window"`
	Backend     string `mapstructure:"backend"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type MatcherConfig struct {
	Cutoff float64 `mapstructure:"cutoff"`
	Policy string  `mapstructure:"policy"`
}

type IngestConfig struct {
	DetailsURL string        `mapstructure:"details_url"`
	ScoresURL  string        `mapstructure:"scores_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads the YAML file at path (optional when it does not exist),
// layers environment variables on top and returns the result. A .env file in
// the working directory is loaded first; it never overrides variables that
// are already set.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("log.mode", "production")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bni")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("database.query_timeout", 30*time.Second)
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("memory.window", 3)
	v.SetDefault("memory.backend", "memory")
	v.SetDefault("memory.redis_addr", "")
	v.SetDefault("memory.redis_prefix", "bni:history:")
	v.SetDefault("matcher.cutoff", 0.7)
	v.SetDefault("matcher.policy", "first_token")
	v.SetDefault("ingest.details_url", "https://bniapi.futureinfotechservices.in/BNI/bni_membersdeatilsgems.php")
	v.SetDefault("ingest.scores_url", "https://bniapi.futureinfotechservices.in/BNI/bniapiecomm.php")
	v.SetDefault("ingest.timeout", 60*time.Second)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.QueryTimeout = config.Database.QueryTimeout
		config.Database = dbConfig
	}

	// Variables used by the legacy deployment
	if host := v.GetString("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if user := v.GetString("DB_USER"); user != "" {
		config.Database.User = user
	}
	if password := v.GetString("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if name := v.GetString("DB_NAME"); name != "" {
		config.Database.DBName = name
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if apiKey := v.GetString("OPENROUTER_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}

	if addr := v.GetString("REDIS_ADDR"); addr != "" {
		config.Memory.RedisAddr = addr
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Memory.Backend {
	case "memory":
	case "redis":
		if c.Memory.RedisAddr == "" {
			return fmt.Errorf("memory.backend is redis but memory.redis_addr is empty")
		}
	default:
		return fmt.Errorf("unsupported memory.backend %q", c.Memory.Backend)
	}
	if c.Memory.Window <= 0 {
		return fmt.Errorf("memory.window must be positive, got %d", c.Memory.Window)
	}
	if c.Matcher.Cutoff <= 0 || c.Matcher.Cutoff > 1 {
		return fmt.Errorf("matcher.cutoff must be in (0, 1], got %v", c.Matcher.Cutoff)
	}
	switch c.Matcher.Policy {
	case "first_token", "best_overall":
	default:
		return fmt.Errorf("unsupported matcher.policy %q", c.Matcher.Policy)
	}
	return nil
}
