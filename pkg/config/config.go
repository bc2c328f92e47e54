// Package config loads thresholdctl settings from thresholdctl.yaml, the
// THRESHOLDCTL_* environment and command line overrides, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/luxfi/substrate-mpc/pkg/artifact"
	"github.com/luxfi/substrate-mpc/pkg/event"
	"github.com/luxfi/substrate-mpc/pkg/keystore"
	"github.com/luxfi/substrate-mpc/pkg/types"
)

const (
	EnvPrefix  = "THRESHOLDCTL"
	ConfigName = "thresholdctl"
)

type KeystoreConfig struct {
	Dir        string `mapstructure:"dir"`
	WorkFactor int    `mapstructure:"work_factor"`
	// Passphrase selects the hsm provider ("env", "file", "prompt") and its
	// options.
	Passphrase PassphraseConfig `mapstructure:"passphrase"`
}

type PassphraseConfig struct {
	Provider string            `mapstructure:"provider"`
	Options  map[string]string `mapstructure:"options"`
}

type NodeConfig struct {
	URL     string `mapstructure:"url"`
	Network string `mapstructure:"network"`
}

type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	NATS    event.NATSConfig `mapstructure:"nats"`
}

type WaitConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Environment string          `mapstructure:"environment"`
	Debug       bool            `mapstructure:"debug"`
	Store       artifact.Config `mapstructure:"store"`
	Keystore    KeystoreConfig  `mapstructure:"keystore"`
	Node        NodeConfig      `mapstructure:"node"`
	Events      EventsConfig    `mapstructure:"events"`
	Wait        WaitConfig      `mapstructure:"wait"`
}

func defaultKeystoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".thresholdctl", "keystore")
	}
	return filepath.Join(home, ".thresholdctl", "keystore")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)
	v.SetDefault("store.backend", artifact.BackendFile)
	v.SetDefault("store.path", ".")
	v.SetDefault("keystore.dir", defaultKeystoreDir())
	v.SetDefault("keystore.work_factor", keystore.DefaultWorkFactor)
	v.SetDefault("keystore.passphrase.provider", "env")
	v.SetDefault("node.url", types.DefaultNodeURL)
	v.SetDefault("node.network", string(types.NetworkSubstrate))
	v.SetDefault("events.enabled", false)
	v.SetDefault("wait.timeout", time.Duration(0))
	v.SetDefault("wait.interval", artifact.DefaultPollInterval)
}

// InitViperConfig builds a viper instance with defaults, the config file
// (path, or thresholdctl.yaml in the working directory or ~/.thresholdctl)
// and the environment. A missing default config file is not an error.
func InitViperConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".thresholdctl"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !types.IsNetworkSupported(c.Node.Network) {
		return fmt.Errorf("unsupported network %q", c.Node.Network)
	}
	if c.Store.Backend == artifact.BackendFile && c.Store.Path == "" {
		return errors.New("store.path is required for the file backend")
	}
	if c.Keystore.WorkFactor < 1 || c.Keystore.WorkFactor > 30 {
		return fmt.Errorf("keystore.work_factor %d out of range", c.Keystore.WorkFactor)
	}
	if c.Wait.Timeout < 0 || c.Wait.Interval < 0 {
		return errors.New("wait durations must not be negative")
	}
	return nil
}

// SS58Prefix returns the address prefix of the configured network.
func (c *Config) SS58Prefix() uint16 {
	n, _ := types.LookupNetwork(c.Node.Network)
	return n.SS58Prefix
}
