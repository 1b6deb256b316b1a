package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv names the environment variable holding the AI gateway key.
// The key is read at request time, not captured at startup, so rotation
// needs no restart.
const APIKeyEnv = "AI_GATEWAY_API_KEY"

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // postgres | mysql
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	AI struct {
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	// APIKeys maps an API key to the user it authenticates.
	APIKeys map[string]string `yaml:"apiKeys"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Load reads the yaml config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.RateLimit.Capacity == 0 {
		cfg.RateLimit.Capacity = 30
	}
	if cfg.RateLimit.RefillRate == 0 {
		cfg.RateLimit.RefillRate = 1
	}
	return &cfg, nil
}

// GatewayAPIKey reads the AI gateway key from the environment.
func GatewayAPIKey() string {
	return os.Getenv(APIKeyEnv)
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		sslMode,
	)
}

// MySQLDSN builds the go-sql-driver connection string.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
