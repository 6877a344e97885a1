package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Poll     PollConfig     `yaml:"poll"`
}

type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type DispatchConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PollConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; secrets usually come in through the environment.
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %v", err)
	}
	defer file.Close()

	cfg := &Config{}
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %v", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ORDERBRIDGE_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("ORDERBRIDGE_DISPATCH_TOKEN"); v != "" {
		c.Dispatch.Token = v
	}
	if v := os.Getenv("ORDERBRIDGE_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8585
	}
	if c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = 5
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

func (c *Config) GetConnString() string {
	return fmt.Sprintf("user=%s password=%s dbname=%s sslmode=disable host=%s port=%d",
		c.DB.User, c.DB.Password, c.DB.Name, c.DB.Host, c.DB.Port)
}
