package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	// Instruments is the closed set of tradable symbols the service models.
	Instruments []string `yaml:"instruments"`
	Storage     struct {
		Type    string `yaml:"type"` // file or clickhouse
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`
	Registry struct {
		ArtifactDir string `yaml:"artifact_dir"`
	} `yaml:"registry"`
	Retrain struct {
		FeedbackThreshold int           `yaml:"feedback_threshold"` // K: retrain every K feedback rows
		DriftThreshold    float64       `yaml:"drift_threshold"`
		MinSamples        int           `yaml:"min_samples"`
		QueueSize         int           `yaml:"queue_size"`
		Workers           int           `yaml:"workers"`
		JobTimeout        time.Duration `yaml:"job_timeout"`
	} `yaml:"retrain"`
	Queue struct {
		Type string `yaml:"type"` // memory or redis
	} `yaml:"queue"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		ExportTopic  string        `yaml:"export_topic"` // appended feedback rows, consumed by the drift monitor
		DriftTopic   string        `yaml:"drift_topic"`  // drift scores pushed by the drift monitor
		GroupID      string        `yaml:"group_id"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
	} `yaml:"kafka"`
	Notifier struct {
		DispatcherURL string        `yaml:"dispatcher_url"`
		PublicBaseURL string        `yaml:"public_base_url"` // base for feedback callback links
		Timeout       time.Duration `yaml:"timeout"`
		MaxRetries    int           `yaml:"max_retries"`
	} `yaml:"notifier"`
	Drift struct {
		PollEnabled  bool          `yaml:"poll_enabled"`
		ScorerURL    string        `yaml:"scorer_url"`
		PollInterval time.Duration `yaml:"poll_interval"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"drift"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("DISPATCHER_URL"); v != "" {
		c.Notifier.DispatcherURL = v
	}
	if v := os.Getenv("FEEDBACK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retrain.FeedbackThreshold = n
		}
	}
	if v := os.Getenv("DRIFT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retrain.DriftThreshold = f
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Registry.ArtifactDir == "" {
		c.Registry.ArtifactDir = "artifacts"
	}
	if c.Retrain.FeedbackThreshold == 0 {
		c.Retrain.FeedbackThreshold = 10
	}
	if c.Retrain.DriftThreshold == 0 {
		c.Retrain.DriftThreshold = 0.3
	}
	if c.Retrain.MinSamples == 0 {
		c.Retrain.MinSamples = 30
	}
	if c.Retrain.QueueSize == 0 {
		c.Retrain.QueueSize = 64
	}
	if c.Retrain.Workers == 0 {
		c.Retrain.Workers = 2
	}
	if c.Retrain.JobTimeout == 0 {
		c.Retrain.JobTimeout = 2 * time.Minute
	}
	if c.Queue.Type == "" {
		c.Queue.Type = "memory"
	}
	if c.Notifier.Timeout == 0 {
		c.Notifier.Timeout = 5 * time.Second
	}
	if c.Notifier.MaxRetries == 0 {
		c.Notifier.MaxRetries = 3
	}
	if c.Drift.PollInterval == 0 {
		c.Drift.PollInterval = 6 * time.Hour
	}
	if c.Drift.Timeout == 0 {
		c.Drift.Timeout = 5 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty")
	}
	if c.Storage.Type != "file" && c.Storage.Type != "clickhouse" {
		return fmt.Errorf("storage.type must be 'file' or 'clickhouse', got '%s'", c.Storage.Type)
	}
	if c.Queue.Type != "memory" && c.Queue.Type != "redis" {
		return fmt.Errorf("queue.type must be 'memory' or 'redis', got '%s'", c.Queue.Type)
	}
	if c.Queue.Type == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for redis queue")
	}
	if c.Storage.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse storage")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Retrain.FeedbackThreshold < 1 {
		return fmt.Errorf("retrain.feedback_threshold must be positive")
	}
	if c.Retrain.DriftThreshold < 0 || c.Retrain.DriftThreshold > 1 {
		return fmt.Errorf("retrain.drift_threshold must be in [0,1]")
	}
	return nil
}

// Supported reports whether the instrument is part of the configured set.
func (c *Config) Supported(instrument string) bool {
	for _, s := range c.Instruments {
		if s == instrument {
			return true
		}
	}
	return false
}
