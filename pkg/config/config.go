// Copyright 2024-2026 Aiku AI

// Package config loads the bot configuration from YAML and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	up "go.mau.fi/util/configupgrade"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override config values,
// e.g. PROXYBOT_MATTERMOST_TOKEN.
const EnvPrefix = "proxybot"

//go:embed example-config.yaml
var ExampleConfig string

type Config struct {
	Mattermost MattermostConfig  `yaml:"mattermost"`
	Database   DatabaseConfig    `yaml:"database"`
	Proxy      ProxyConfig       `yaml:"proxy"`
	Commands   CommandsConfig    `yaml:"commands"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Logging    zeroconfig.Config `yaml:"logging" ignored:"true"`
}

type MattermostConfig struct {
	ServerURL           string `yaml:"server_url" envconfig:"server_url"`
	Token               string `yaml:"token" envconfig:"token"`
	CommandPrefix       string `yaml:"command_prefix" envconfig:"command_prefix"`
	DeleteEmoji         string `yaml:"delete_emoji" envconfig:"delete_emoji"`
	MaxConcurrentEvents int    `yaml:"max_concurrent_events" envconfig:"max_concurrent_events"`
}

type DatabaseConfig struct {
	Type            string        `yaml:"type" envconfig:"type"`
	URI             string        `yaml:"uri" envconfig:"uri"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"max_idle_conns"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" envconfig:"max_conn_idle_time"`
}

type ProxyConfig struct {
	ReservedNames     []string      `yaml:"reserved_names" envconfig:"reserved_names"`
	WebhookName       string        `yaml:"webhook_name" envconfig:"webhook_name"`
	CandidateCacheTTL time.Duration `yaml:"candidate_cache_ttl" envconfig:"candidate_cache_ttl"`
}

type CommandsConfig struct {
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" envconfig:"confirm_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"enabled"`
	Listen  string `yaml:"listen" envconfig:"listen"`
}

// UnmarshalYAML fills in defaults for keys missing from the document.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	*c = Config{
		Mattermost: MattermostConfig{CommandPrefix: "pk;", DeleteEmoji: "x", MaxConcurrentEvents: 32},
		Database:   DatabaseConfig{Type: "postgres", MaxOpenConns: 20, MaxIdleConns: 2},
		Proxy:      ProxyConfig{ReservedNames: []string{"system"}, WebhookName: "Proxybot", CandidateCacheTTL: time.Minute},
		Commands:   CommandsConfig{ConfirmTimeout: time.Minute},
		Metrics:    MetricsConfig{Listen: "127.0.0.1:8001"},
	}
	return node.Decode((*rawConfig)(c))
}

// PostProcess normalizes values and checks that required ones are set.
func (c *Config) PostProcess() error {
	c.Mattermost.ServerURL = strings.TrimSuffix(c.Mattermost.ServerURL, "/")
	var errs []error
	if u, err := url.Parse(c.Mattermost.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("mattermost.server_url must be an http(s) URL, got %q", c.Mattermost.ServerURL))
	}
	if c.Mattermost.Token == "" {
		errs = append(errs, errors.New("mattermost.token is required"))
	}
	if strings.TrimSpace(c.Mattermost.CommandPrefix) == "" {
		errs = append(errs, errors.New("mattermost.command_prefix can't be empty"))
	}
	c.Mattermost.DeleteEmoji = strings.Trim(c.Mattermost.DeleteEmoji, ":")
	if c.Mattermost.DeleteEmoji == "" {
		errs = append(errs, errors.New("mattermost.delete_emoji can't be empty"))
	}
	if c.Mattermost.MaxConcurrentEvents < 1 {
		errs = append(errs, errors.New("mattermost.max_concurrent_events must be at least 1"))
	}
	switch c.Database.Type {
	case "postgres", "sqlite3":
	case "sqlite3-fk-wal":
		c.Database.Type = "sqlite3"
	default:
		errs = append(errs, fmt.Errorf("database.type must be postgres or sqlite3, got %q", c.Database.Type))
	}
	if c.Database.URI == "" {
		errs = append(errs, errors.New("database.uri is required"))
	}
	if c.Proxy.CandidateCacheTTL < 0 {
		errs = append(errs, errors.New("proxy.candidate_cache_ttl can't be negative"))
	}
	if c.Commands.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("commands.confirm_timeout must be positive"))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "mattermost", "server_url")
	helper.Copy(up.Str, "mattermost", "token")
	helper.Copy(up.Str, "mattermost", "command_prefix")
	helper.Copy(up.Str, "mattermost", "delete_emoji")
	helper.Copy(up.Int, "mattermost", "max_concurrent_events")

	helper.Copy(up.Str, "database", "type")
	helper.Copy(up.Str, "database", "uri")
	helper.Copy(up.Int, "database", "max_open_conns")
	helper.Copy(up.Int, "database", "max_idle_conns")
	helper.Copy(up.Str|up.Null, "database", "max_conn_idle_time")

	helper.Copy(up.List, "proxy", "reserved_names")
	helper.Copy(up.Str, "proxy", "webhook_name")
	helper.Copy(up.Str, "proxy", "candidate_cache_ttl")

	helper.Copy(up.Str, "commands", "confirm_timeout")

	helper.Copy(up.Bool, "metrics", "enabled")
	helper.Copy(up.Str, "metrics", "listen")

	helper.Copy(up.Map, "logging")
}

// Upgrader carries values from an existing config file over to the layout
// of ExampleConfig.
var Upgrader = &up.StructUpgrader{
	SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
	Base:           ExampleConfig,
}

// Load reads the config at path, upgrading the file in place when save is
// set, and applies environment overrides.
func Load(path string, save bool) (*Config, error) {
	data, _, err := up.Do(path, save, Upgrader)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a config document and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
