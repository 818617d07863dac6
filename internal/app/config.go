package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"electrumsmart/internal/chain"
	"electrumsmart/internal/transport"
)

const (
	// ConfigFilename is the config file inside the home directory.
	ConfigFilename = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. ELECTRUMSMART_SERVER_HOST.
	EnvPrefix = "ELECTRUMSMART"
)

const homeDirName = ".electrumsmart"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ServerConfig selects and tunes the Electrum server connection.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              uint16        `mapstructure:"port"`
	TLS               bool          `mapstructure:"tls"`
	VerifyCertificate bool          `mapstructure:"verify_certificate"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout"`
	Retries           uint64        `mapstructure:"retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

// Transport converts the server section into a transport config.
func (s ServerConfig) Transport() transport.Config {
	return transport.Config{
		Host:              s.Host,
		Port:              s.Port,
		TLS:               s.TLS,
		VerifyCertificate: s.VerifyCertificate,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		DialTimeout:       s.DialTimeout,
	}
}

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string       `mapstructure:"-"` // config directory, e.g. $HOME/.electrumsmart
	Server     ServerConfig `mapstructure:"server"`
	Network    string       `mapstructure:"network"`
	ClientName string       `mapstructure:"client_name"`
	Log        LogConfig    `mapstructure:"log"`

	// ResyncInterval drives periodic watch-list resyncs while listening.
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:              "electrum.blockstream.info",
			Port:              transport.DefaultPort,
			TLS:               true,
			VerifyCertificate: true,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      10 * time.Second,
			DialTimeout:       10 * time.Second,
			Retries:           3,
			RetryDelay:        time.Second,
		},
		Network:    "mainnet",
		ClientName: "electrumsmart",
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultHome returns ~/.electrumsmart.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, homeDirName), nil
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"host":            "server.host",
	"port":            "server.port",
	"tls":             "server.tls",
	"verify":          "server.verify_certificate",
	"read-timeout":    "server.read_timeout",
	"write-timeout":   "server.write_timeout",
	"dial-timeout":    "server.dial_timeout",
	"retries":         "server.retries",
	"retry-delay":     "server.retry_delay",
	"network":         "network",
	"client-name":     "client_name",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"resync-interval": "resync_interval",
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.tls", d.Server.TLS)
	v.SetDefault("server.verify_certificate", d.Server.VerifyCertificate)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.dial_timeout", d.Server.DialTimeout)
	v.SetDefault("server.retries", d.Server.Retries)
	v.SetDefault("server.retry_delay", d.Server.RetryDelay)
	v.SetDefault("network", d.Network)
	v.SetDefault("client_name", d.ClientName)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("resync_interval", d.ResyncInterval)
}

// LoadConfig resolves the configuration for home. Precedence: flags that
// were set > environment > config.yaml > defaults. flags may be nil.
func LoadConfig(home string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(ConfigFilename, filepath.Ext(ConfigFilename)))
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading %s: %w", ConfigFilename, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Home = home
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Host == "" {
		errs = append(errs, errors.New("server.host is empty"))
	}
	if c.Server.Port == 0 {
		errs = append(errs, errors.New("server.port must be 1-65535"))
	}
	if _, err := chain.Network(c.Network); err != nil {
		errs = append(errs, fmt.Errorf("network: %w", err))
	}
	if c.ClientName == "" {
		errs = append(errs, errors.New("client_name is empty"))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is not one of %s", c.Log.Format, strings.Join(logFormats, ", ")))
	}
	for key, d := range map[string]time.Duration{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"server.dial_timeout":  c.Server.DialTimeout,
		"server.retry_delay":   c.Server.RetryDelay,
		"resync_interval":      c.ResyncInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s is negative", key))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// configFile is the YAML layout written by WriteConfig. Durations are
// written in their string form so the file stays hand-editable.
type configFile struct {
	Server struct {
		Host              string `yaml:"host"`
		Port              uint16 `yaml:"port"`
		TLS               bool   `yaml:"tls"`
		VerifyCertificate bool   `yaml:"verify_certificate"`
		ReadTimeout       string `yaml:"read_timeout"`
		WriteTimeout      string `yaml:"write_timeout"`
		DialTimeout       string `yaml:"dial_timeout"`
		Retries           uint64 `yaml:"retries"`
		RetryDelay        string `yaml:"retry_delay"`
	} `yaml:"server"`
	Network        string `yaml:"network"`
	ClientName     string `yaml:"client_name"`
	ResyncInterval string `yaml:"resync_interval"`
	Log            struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// WriteConfig writes cfg to home/config.yaml. An existing file is only
// replaced when overwrite is set.
func WriteConfig(cfg Config, overwrite bool) (string, error) {
	path := filepath.Join(cfg.Home, ConfigFilename)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s already exists", path)
		}
	}
	var f configFile
	f.Server.Host = cfg.Server.Host
	f.Server.Port = cfg.Server.Port
	f.Server.TLS = cfg.Server.TLS
	f.Server.VerifyCertificate = cfg.Server.VerifyCertificate
	f.Server.ReadTimeout = cfg.Server.ReadTimeout.String()
	f.Server.WriteTimeout = cfg.Server.WriteTimeout.String()
	f.Server.DialTimeout = cfg.Server.DialTimeout.String()
	f.Server.Retries = cfg.Server.Retries
	f.Server.RetryDelay = cfg.Server.RetryDelay.String()
	f.Network = cfg.Network
	f.ClientName = cfg.ClientName
	f.ResyncInterval = cfg.ResyncInterval.String()
	f.Log.Level = cfg.Log.Level
	f.Log.Format = cfg.Log.Format

	b, err := yaml.Marshal(&f)
	if err != nil {
		return path, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return path, err
	}
	return path, os.WriteFile(path, b, 0o600)
}
