package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/types"
	"gopkg.in/yaml.v3"
)

// ErrUnknownSetting is returned by Set for names that are not settings
var ErrUnknownSetting = errors.New("unknown setting")

// Config is the complete cspublish configuration. Values come from
// DefaultConfig, then an optional YAML file, then command line flags.
type Config struct {
	ProjectDir      string `yaml:"projectDir"`
	PublishSettings string `yaml:"publishSettings"`
	SubscriptionID  string `yaml:"subscriptionId"`
	CloudService    string `yaml:"cloudService"`
	Region          string `yaml:"region"`
	StorageAccount  string `yaml:"storageAccount"`
	Slot            string `yaml:"slot"`
	Overwrite       bool   `yaml:"overwrite"`

	// VerifyURL requests the site URL over HTTP once the deployment is ready
	VerifyURL bool `yaml:"verifyUrl"`

	StateDir    string `yaml:"stateDir"`
	MetricsFile string `yaml:"metricsFile"`

	Log     LogConfig     `yaml:"log"`
	Polling PollingConfig `yaml:"polling"`
	Client  ClientConfig  `yaml:"client"`
}

// LogConfig configures pkg/log
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PollingConfig configures the waits for async operations and role health
type PollingConfig struct {
	Interval     time.Duration `yaml:"interval"`
	RoleInterval time.Duration `yaml:"roleInterval"`
	// Timeout bounds each wait; zero waits as long as the command runs
	Timeout time.Duration `yaml:"timeout"`
}

// ClientConfig configures the management API transport
type ClientConfig struct {
	RetryMax int           `yaml:"retryMax"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		ProjectDir: DefaultProjectDir(),
		Slot:       string(types.SlotStaging),
		Overwrite:  true,
		StateDir:   DefaultStateDir(),
		Log: LogConfig{
			Level: string(log.InfoLevel),
		},
		Polling: PollingConfig{
			Interval:     5 * time.Second,
			RoleInterval: 20 * time.Second,
		},
		Client: ClientConfig{
			RetryMax: 3,
			Timeout:  5 * time.Minute,
		},
	}
}

// DefaultProjectDir is the working directory, or . when it cannot be read
func DefaultProjectDir() string {
	wd, err := os.Getwd()
	if err != nil || wd == "" {
		return "."
	}
	return wd
}

// DefaultStateDir is ~/.cspublish, or .cspublish when there is no home
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".cspublish"
	}
	return filepath.Join(home, ".cspublish")
}

// Load reads a YAML file on top of the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Set overrides one value by its command line flag name
func (c *Config) Set(name, value string) error {
	var err error
	switch name {
	case "project-dir":
		c.ProjectDir = value
	case "publish-settings":
		c.PublishSettings = value
	case "subscription-id":
		c.SubscriptionID = value
	case "cloud-service":
		c.CloudService = value
	case "region":
		c.Region = value
	case "storage-account":
		c.StorageAccount = value
	case "slot":
		c.Slot = value
	case "overwrite":
		c.Overwrite, err = strconv.ParseBool(value)
	case "verify-url":
		c.VerifyURL, err = strconv.ParseBool(value)
	case "state-dir":
		c.StateDir = value
	case "metrics-file":
		c.MetricsFile = value
	case "log-level":
		c.Log.Level = value
	case "log-json":
		c.Log.JSON, err = strconv.ParseBool(value)
	case "poll-interval":
		c.Polling.Interval, err = time.ParseDuration(value)
	case "poll-timeout":
		c.Polling.Timeout, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, name, err)
	}
	return nil
}

// Validate checks values that do not depend on the deployment inputs.
// Those are validated by types.NewDeploymentRequest.
func (c *Config) Validate() error {
	if c.Slot != "" {
		if _, err := types.ParseSlot(c.Slot); err != nil {
			return err
		}
	}

	switch log.Level(strings.ToLower(c.Log.Level)) {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		return &types.ValidationError{Field: "log.level", Reason: fmt.Sprintf("must be one of debug, info, warn, error, got %q", c.Log.Level)}
	}

	if c.Polling.Interval < 0 || c.Polling.RoleInterval < 0 || c.Polling.Timeout < 0 {
		return &types.ValidationError{Field: "polling", Reason: "durations must not be negative"}
	}
	if c.Client.RetryMax < 0 {
		return &types.ValidationError{Field: "client.retryMax", Reason: "must not be negative"}
	}
	if c.StateDir == "" {
		return &types.ValidationError{Field: "stateDir", Reason: "is empty"}
	}
	return nil
}

// RequestOptions converts the deployment inputs for types.NewDeploymentRequest
func (c *Config) RequestOptions() types.RequestOptions {
	return types.RequestOptions{
		ProjectDir:          c.ProjectDir,
		PublishSettingsPath: c.PublishSettings,
		SubscriptionID:      c.SubscriptionID,
		CloudServiceName:    c.CloudService,
		Region:              c.Region,
		StorageAccountName:  c.StorageAccount,
		DeploymentSlot:      c.Slot,
		Overwrite:           strconv.FormatBool(c.Overwrite),
	}
}
