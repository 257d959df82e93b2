package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"imspsms/imsp"
	"imspsms/zabbix"
)

// Config describes the service configuration.
type Config struct {
	Gateway Gateway           `yaml:"gateway"`          // gateway account and defaults
	Listen  string            `yaml:",omitempty"`       // address of the HTTP interface
	NATS    *NATS             `yaml:"nats,omitempty"`   // NATS interface
	MySQL   string            `yaml:"mysql,omitempty"`  // DSN of the submission journal
	Zabbix  zabbix.Log        `yaml:"zabbix,omitempty"` // submission counters
	Logs    map[string]string `yaml:"logs,omitempty"`   // log level -> file name
}

// Gateway describes the gateway account. Account, password, URL and timeouts
// can be overridden with IMSP_* environment variables.
type Gateway struct {
	URL            string        `yaml:"url,omitempty" envconfig:"url"`
	Account        string        `yaml:"account" envconfig:"account"`
	Password       string        `yaml:"password" envconfig:"password"`
	Legacy         bool          `yaml:"legacy,omitempty" envconfig:"legacy"`                  // encode by message type
	Timeout        time.Duration `yaml:"timeout,omitempty" envconfig:"timeout"`                // whole request
	ConnectTimeout time.Duration `yaml:"connectTimeout,omitempty" envconfig:"connect_timeout"` // connection only
	Defaults       imsp.Fields   `yaml:"defaults,omitempty" ignored:"true"`                    // default submission fields
}

// NATS describes the subscription for submission requests.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// DefaultSubject is used when the NATS subject is not configured.
const DefaultSubject = "imsp.submit"

// ParseConfig parses the configuration and applies the environment overrides.
func ParseConfig(data []byte) (*Config, error) {
	config := new(Config)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if err := envconfig.Process("imsp", &config.Gateway); err != nil {
		return nil, err
	}
	if config.Gateway.Account == "" || config.Gateway.Password == "" {
		return nil, errors.New("gateway account or password is not set")
	}
	if config.NATS != nil && config.NATS.Subject == "" {
		config.NATS.Subject = DefaultSubject
	}
	return config, nil
}

// LoadConfig loads and parses the configuration from a file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// Client returns the gateway client described by the configuration.
func (g *Gateway) Client(logger *logrus.Entry) (*imsp.Client, error) {
	client := imsp.NewClient(g.Account, g.Password)
	if g.URL != "" {
		client.URL = g.URL
	}
	client.Legacy = g.Legacy
	client.Poster = imsp.NewHTTPPoster(g.ConnectTimeout, g.Timeout)
	client.Logger = logger
	defaults, err := client.Defaults.Merge(g.Defaults, !g.Legacy)
	if err != nil {
		return nil, fmt.Errorf("gateway defaults: %w", err)
	}
	client.Defaults = defaults
	return client, nil
}

// LogHook returns the hook writing log levels to separate files or nil if
// no files are configured.
func (c *Config) LogHook() (logrus.Hook, error) {
	if len(c.Logs) == 0 {
		return nil, nil
	}
	paths := make(lfshook.PathMap, len(c.Logs))
	for name, filename := range c.Logs {
		level, err := logrus.ParseLevel(name)
		if err != nil {
			return nil, err
		}
		paths[level] = filename
	}
	return lfshook.NewHook(paths, new(logrus.JSONFormatter)), nil
}
