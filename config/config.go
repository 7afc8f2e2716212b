package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the monitor service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen   string `mapstructure:"listen"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// SearchConfig configures the external search engine boundary.
type SearchConfig struct {
	Provider    string        `mapstructure:"provider"` // googlecse, serper
	APIKey      string        `mapstructure:"api_key"`
	EngineID    string        `mapstructure:"engine_id"` // google custom search cx
	MaxResults  int           `mapstructure:"max_results"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (s SearchConfig) Validate() error {
	if strings.TrimSpace(s.Provider) == "" {
		return fmt.Errorf("search.provider required")
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("search.api_key required")
	}
	if s.Provider == "googlecse" && strings.TrimSpace(s.EngineID) == "" {
		return fmt.Errorf("search.engine_id required for googlecse")
	}
	return nil
}

// Normalize applies fan-out defaults when values are omitted.
func (s SearchConfig) Normalize() SearchConfig {
	if s.MaxResults <= 0 {
		s.MaxResults = 5
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 10
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	return s
}

// FetchConfig configures source retrieval and text extraction.
type FetchConfig struct {
	Type        string        `mapstructure:"type"` // http, readability, chromedp
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxChars    int           `mapstructure:"max_chars"`
	Concurrency int           `mapstructure:"concurrency"`
	UserAgent   string        `mapstructure:"user_agent"`
}

func (f FetchConfig) Normalize() FetchConfig {
	if f.Type == "" {
		f.Type = "http"
	}
	if f.Timeout <= 0 {
		f.Timeout = 10 * time.Second
	}
	if f.MaxChars <= 0 {
		f.MaxChars = 20000
	}
	if f.Concurrency <= 0 {
		f.Concurrency = 20
	}
	return f
}

// LLMConfig configures the generative model used for summarization.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, gemini
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Provider) == "" {
		return fmt.Errorf("llm.provider required")
	}
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key required")
	}
	return nil
}

func (l LLMConfig) Normalize() LLMConfig {
	if l.Model == "" {
		l.Model = "gpt-4o-mini"
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = 4096
	}
	if l.Timeout <= 0 {
		l.Timeout = 60 * time.Second
	}
	return l
}

// NotifyConfig configures outbound report notification.
type NotifyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Sender  string `mapstructure:"sender"`
}

func (n NotifyConfig) Validate() error {
	if !n.Enabled {
		return nil
	}
	if strings.TrimSpace(n.APIKey) == "" {
		return fmt.Errorf("notify.api_key required when notify is enabled")
	}
	if strings.TrimSpace(n.Sender) == "" {
		return fmt.Errorf("notify.sender required when notify is enabled")
	}
	return nil
}

// QueueConfig configures the trigger transport.
type QueueConfig struct {
	Stream   string `mapstructure:"stream"`
	Group    string `mapstructure:"group"`
	Consumer string `mapstructure:"consumer"`
}

func (q QueueConfig) Normalize() QueueConfig {
	if q.Stream == "" {
		q.Stream = "monitor.run"
	}
	if q.Group == "" {
		q.Group = "compass-workers"
	}
	if q.Consumer == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "worker"
		}
		q.Consumer = host
	}
	return q
}

// SchedulerConfig configures the cron tick loop.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

func (s SchedulerConfig) Normalize() SchedulerConfig {
	if s.TickInterval <= 0 {
		s.TickInterval = time.Minute
	}
	return s
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// LoadConfig loads config from file and environment (COMPASS_*).
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("COMPASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	config.Search = config.Search.Normalize()
	config.Fetch = config.Fetch.Normalize()
	config.LLM = config.LLM.Normalize()
	config.Queue = config.Queue.Normalize()
	config.Scheduler = config.Scheduler.Normalize()

	if err := config.Search.Validate(); err != nil {
		return nil, err
	}
	if err := config.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := config.Notify.Validate(); err != nil {
		return nil, err
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		return nil, err
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
