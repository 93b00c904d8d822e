package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Browser  BrowserConfig  `yaml:"browser"`
	Fallback FallbackConfig `yaml:"fallback"`
	Search   SearchConfig   `yaml:"search"`
	Pool     PoolConfig     `yaml:"pool"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type BrowserConfig struct {
	Headless        bool          `yaml:"headless"`
	NavTimeout      time.Duration `yaml:"nav_timeout"`
	SelectorTimeout time.Duration `yaml:"selector_timeout"`
	DetailTimeout   time.Duration `yaml:"detail_timeout"`
}

type FallbackConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time"`
}

type SearchConfig struct {
	FastSource     string        `yaml:"fast_source"`
	FetchLimit     int           `yaml:"fetch_limit"`
	CacheMinRows   int           `yaml:"cache_min_rows"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SourcePause    time.Duration `yaml:"source_pause"`
}

type PoolConfig struct {
	TargetPerSource int    `yaml:"target_per_source"`
	CronSpec        string `yaml:"cron_spec"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Browser.NavTimeout == 0 {
		c.Browser.NavTimeout = 45 * time.Second
	}
	if c.Browser.SelectorTimeout == 0 {
		c.Browser.SelectorTimeout = 20 * time.Second
	}
	if c.Browser.DetailTimeout == 0 {
		c.Browser.DetailTimeout = 15 * time.Second
	}
	if c.Fallback.Endpoint == "" {
		c.Fallback.Endpoint = "https://html.duckduckgo.com/html/"
	}
	if c.Fallback.Timeout == 0 {
		c.Fallback.Timeout = 20 * time.Second
	}
	if c.Fallback.MaxElapsedTime == 0 {
		c.Fallback.MaxElapsedTime = 45 * time.Second
	}
	if c.Search.FastSource == "" {
		c.Search.FastSource = "internshala"
	}
	if c.Search.FetchLimit == 0 {
		c.Search.FetchLimit = 10
	}
	if c.Search.CacheMinRows == 0 {
		c.Search.CacheMinRows = 5
	}
	if c.Search.RequestTimeout == 0 {
		c.Search.RequestTimeout = 90 * time.Second
	}
	if c.Search.SourcePause == 0 {
		c.Search.SourcePause = 5 * time.Second
	}
	if c.Pool.TargetPerSource == 0 {
		c.Pool.TargetPerSource = 20
	}
	if c.Pool.CronSpec == "" {
		c.Pool.CronSpec = "@daily"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
