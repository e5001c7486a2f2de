package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Remote  RemoteConfig  `yaml:"remote"`
	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`

	path string
	mtx  sync.RWMutex
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

type StoreConfig struct {
	Type string `yaml:"type"` // "file", "inmemory" или "postgres"
	Path string `yaml:"path"` // каталог данных для file
	URL  string `yaml:"url"`  // строка подключения для postgres
}

type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type SyncConfig struct {
	QueueSize      int           `yaml:"queue_size"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	ResyncBatch    int           `yaml:"resync_batch"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

// yaml.v3 не умеет разбирать строку вида "10s" в time.Duration,
// поэтому длительности читаем строками и разбираем сами

func (r *RemoteConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.BaseURL = raw.BaseURL
	r.Token = raw.Token
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("remote.timeout: %w", err)
		}
		r.Timeout = d
	}
	return nil
}

func (s *SyncConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		QueueSize      int    `yaml:"queue_size"`
		ResyncInterval string `yaml:"resync_interval"`
		ResyncBatch    int    `yaml:"resync_batch"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.QueueSize = raw.QueueSize
	s.ResyncBatch = raw.ResyncBatch
	if raw.ResyncInterval != "" {
		d, err := time.ParseDuration(raw.ResyncInterval)
		if err != nil {
			return fmt.Errorf("sync.resync_interval: %w", err)
		}
		s.ResyncInterval = d
	}
	return nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yml"
	}
	cfg := &Config{path: path}
	if err := cfg.Reload(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reload перечитывает файл конфигурации — единственный способ изменить
// настройки во время работы, никаких ленивых глобальных кешей
func (c *Config) Reload() error {
	file, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("не могу открыть %s: %w", c.path, err)
	}
	defer file.Close()

	var next Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&next); err != nil {
		return fmt.Errorf("ошибка парсинга %s: %w", c.path, err)
	}
	next.applyDefaults()

	c.mtx.Lock()
	c.Server = next.Server
	c.Store = next.Store
	c.Remote = next.Remote
	c.Sync = next.Sync
	c.Logging = next.Logging
	c.mtx.Unlock()
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Store.Type == "" {
		c.Store.Type = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data"
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 10 * time.Second
	}
	if c.Sync.QueueSize <= 0 {
		c.Sync.QueueSize = 64
	}
	if c.Sync.ResyncInterval <= 0 {
		c.Sync.ResyncInterval = 5 * time.Minute
	}
	if c.Sync.ResyncBatch <= 0 {
		c.Sync.ResyncBatch = 100
	}
}

func (c *Config) GetServerAddr() string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// RemoteConfigured — удалённая сторона настроена, если есть и адрес, и токен
func (c *Config) RemoteConfigured() bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.Remote.BaseURL != "" && c.Remote.Token != ""
}

func (c *Config) RemoteSettings() RemoteConfig {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.Remote
}
