// Package config handles loading and validating pool and instance
// configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jbrasil/docpool/pkg/address"
	"gopkg.in/yaml.v3"
)

// InstanceConfig holds process-wide settings: the identity this instance
// publishes to Redis, and the ports its ambient HTTP surfaces listen on.
type InstanceConfig struct {
	InstanceID      string `yaml:"instance_id"`
	HealthCheckPort int    `yaml:"health_check_port"`
	MetricsPort     int    `yaml:"metrics_port"`
}

// RedisConfig configures the distributed event fan-out publisher.
type RedisConfig struct {
	Addr              string        `yaml:"addr"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTTL      time.Duration `yaml:"heartbeat_ttl"`
}

// PoolConfig mirrors spec.md §6's recognized pool options for a single
// server endpoint.
type PoolConfig struct {
	ID               string        `yaml:"id"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	MaxPoolSize      int           `yaml:"max_pool_size"`
	MinPoolSize      int           `yaml:"min_pool_size"`
	WaitQueueTimeout time.Duration `yaml:"wait_queue_timeout"`
	MaxIdleTime      time.Duration `yaml:"max_idle_time"`
	LintMode         bool          `yaml:"lint_mode"`
}

// Address returns the endpoint identity this pool config describes.
func (p PoolConfig) Address() address.Address {
	return address.New(p.Host, p.Port)
}

// Config is the root configuration structure.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Redis    RedisConfig    `yaml:"redis"`
	Pools    []PoolConfig   `yaml:"pools"`
}

// instanceFileConfig mirrors the YAML structure for the instance config file.
type instanceFileConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Redis    RedisConfig    `yaml:"redis"`
}

// poolsFileConfig mirrors the YAML structure for the pools config file.
type poolsFileConfig struct {
	Pools []PoolConfig `yaml:"pools"`
}

// Load reads and parses both the instance and pools configuration files.
func Load(instanceConfigPath, poolsConfigPath string) (*Config, error) {
	instanceData, err := os.ReadFile(instanceConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading instance config %s: %w", instanceConfigPath, err)
	}

	var instanceFile instanceFileConfig
	if err := yaml.Unmarshal(instanceData, &instanceFile); err != nil {
		return nil, fmt.Errorf("parsing instance config %s: %w", instanceConfigPath, err)
	}

	poolsData, err := os.ReadFile(poolsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading pools config %s: %w", poolsConfigPath, err)
	}

	var poolsFile poolsFileConfig
	if err := yaml.Unmarshal(poolsData, &poolsFile); err != nil {
		return nil, fmt.Errorf("parsing pools config %s: %w", poolsConfigPath, err)
	}

	cfg := &Config{
		Instance: instanceFile.Instance,
		Redis:    instanceFile.Redis,
		Pools:    poolsFile.Pools,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// validate checks mandatory fields. It mirrors spec.md §4.1's ConfigError
// at the file-loading boundary — min_pool_size <= max_pool_size is
// re-checked again by pool.New itself, since a hand-built Options value
// never passes through this file.
func (c *Config) validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool must be configured")
	}
	for i, p := range c.Pools {
		if p.ID == "" {
			return fmt.Errorf("pools[%d].id is required", i)
		}
		if p.Host == "" {
			return fmt.Errorf("pools[%d].host is required", i)
		}
		if p.Port == 0 {
			return fmt.Errorf("pools[%d].port is required", i)
		}
		if p.MinPoolSize > p.MaxPoolSize && p.MaxPoolSize != 0 {
			return fmt.Errorf("pools[%d].min_pool_size (%d) exceeds max_pool_size (%d)", i, p.MinPoolSize, p.MaxPoolSize)
		}
	}
	return nil
}

// applyDefaults fills in reasonable defaults for unset optional fields.
func (c *Config) applyDefaults() {
	if c.Instance.HealthCheckPort == 0 {
		c.Instance.HealthCheckPort = 8080
	}
	if c.Instance.MetricsPort == 0 {
		c.Instance.MetricsPort = 9090
	}
	if c.Instance.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.Instance.InstanceID = hostname
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "redis:6379"
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.HeartbeatInterval == 0 {
		c.Redis.HeartbeatInterval = 10 * time.Second
	}
	if c.Redis.HeartbeatTTL == 0 {
		c.Redis.HeartbeatTTL = 30 * time.Second
	}

	for i := range c.Pools {
		if c.Pools[i].MaxPoolSize == 0 {
			c.Pools[i].MaxPoolSize = 5
		}
		if c.Pools[i].MinPoolSize == 0 {
			c.Pools[i].MinPoolSize = 1
		}
		if c.Pools[i].WaitQueueTimeout == 0 {
			c.Pools[i].WaitQueueTimeout = time.Second
		}
	}
}

// PoolByID returns the pool configuration for a given pool ID.
func (c *Config) PoolByID(id string) (*PoolConfig, bool) {
	for i := range c.Pools {
		if c.Pools[i].ID == id {
			return &c.Pools[i], true
		}
	}
	return nil, false
}
