package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file and
// not set on the command line.
const (
	DefaultAddress     = "127.0.0.1"
	DefaultPort        = 3030
	DefaultURL         = "http://192.168.164.1"
	DefaultPasswordEnv = "AMPLIFI_PASSWORD"
	DefaultTimeout     = 10 * time.Second
	DefaultInterval    = 15 * time.Second
	DefaultCooldown    = 60 * time.Second
	DefaultLogLevel    = "info"

	// MinInterval is the shortest poll interval the router tolerates.
	MinInterval = 5 * time.Second
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the exporter configuration.
type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	Amplifi AmplifiConfig `yaml:"amplifi"`
	Poll    PollConfig    `yaml:"poll"`

	// MockFile replaces the router with a static do=full snapshot on disk.
	MockFile string `yaml:"mock_file"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`
}

// ListenConfig is where the metrics endpoint is served.
type ListenConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (l ListenConfig) Addr() string {
	return net.JoinHostPort(l.Address, strconv.Itoa(l.Port))
}

// AmplifiConfig describes the router's management interface.
type AmplifiConfig struct {
	// URL is the base URL, e.g. http://10.0.0.1.
	URL string `yaml:"url"`

	// Password is the literal admin password. Prefer PasswordEnv.
	Password string `yaml:"password"`

	// PasswordEnv names the environment variable read when Password is empty.
	PasswordEnv string `yaml:"password_env"`

	// Timeout bounds each HTTP request to the router.
	Timeout time.Duration `yaml:"timeout"`
}

// PollConfig controls the poll cadence.
type PollConfig struct {
	// Interval is the target time between the starts of two polls.
	Interval time.Duration `yaml:"interval"`

	// Cooldown is the pause after an unparseable snapshot before logging in again.
	Cooldown time.Duration `yaml:"cooldown"`
}

// Level returns the slog level for LogLevel. It falls back to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Flags holds the command-line overrides. Only flags explicitly present on
// the command line take precedence over the config file.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string
	Address    string
	Port       int
	URL        string
	Password   string
	Interval   float64 // seconds
	Mock       string
	LogLevel   string
}

// NewFlags defines the exporter's flags on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "path to an optional YAML config file")
	fs.StringVar(&f.Address, "address", DefaultAddress, "listen address for the metrics endpoint")
	fs.IntVar(&f.Port, "port", DefaultPort, "listen port for the metrics endpoint")
	fs.StringVar(&f.URL, "amplifi", DefaultURL, "base URL of the router, e.g. 'http://10.0.0.1'")
	fs.StringVar(&f.Password, "password", "", "router admin password (default $"+DefaultPasswordEnv+")")
	fs.Float64Var(&f.Interval, "interval", DefaultInterval.Seconds(), "poll interval in seconds (minimum 5)")
	fs.StringVar(&f.Mock, "mock", "", "serve a static snapshot file instead of polling the router")
	fs.StringVar(&f.LogLevel, "log-level", DefaultLogLevel, "log level: debug|info|warn|error")
	return f
}

// apply copies explicitly set flags into cfg.
func (f *Flags) apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "address":
			cfg.Listen.Address = f.Address
		case "port":
			cfg.Listen.Port = f.Port
		case "amplifi":
			cfg.Amplifi.URL = f.URL
		case "password":
			cfg.Amplifi.Password = f.Password
		case "interval":
			cfg.Poll.Interval = time.Duration(f.Interval * float64(time.Second))
		case "mock":
			cfg.MockFile = f.Mock
		case "log-level":
			cfg.LogLevel = f.LogLevel
		}
	})
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then the password environment variable, then flags
// (if fl is non-nil). The result is validated.
func Load(path string, fl *Flags) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if fl != nil {
		fl.apply(cfg)
	}
	if cfg.Amplifi.Password == "" && cfg.Amplifi.PasswordEnv != "" {
		cfg.Amplifi.Password = os.Getenv(cfg.Amplifi.PasswordEnv)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Listen: ListenConfig{
			Address: DefaultAddress,
			Port:    DefaultPort,
		},
		Amplifi: AmplifiConfig{
			URL:         DefaultURL,
			PasswordEnv: DefaultPasswordEnv,
			Timeout:     DefaultTimeout,
		},
		Poll: PollConfig{
			Interval: DefaultInterval,
			Cooldown: DefaultCooldown,
		},
		LogLevel: DefaultLogLevel,
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Amplifi.Password == "" {
		return fmt.Errorf("%w: amplifi.password is required (flag -password or $%s)",
			ErrInvalid, cfg.Amplifi.PasswordEnv)
	}
	if cfg.Poll.Interval < MinInterval {
		return fmt.Errorf("%w: poll.interval %v is below the minimum of %v",
			ErrInvalid, cfg.Poll.Interval, MinInterval)
	}
	if cfg.Poll.Cooldown <= 0 {
		return fmt.Errorf("%w: poll.cooldown must be positive", ErrInvalid)
	}
	if cfg.Amplifi.Timeout <= 0 {
		return fmt.Errorf("%w: amplifi.timeout must be positive", ErrInvalid)
	}
	if cfg.MockFile == "" {
		u, err := url.Parse(cfg.Amplifi.URL)
		if err != nil {
			return fmt.Errorf("%w: amplifi.url: %v", ErrInvalid, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: amplifi.url %q must be http or https", ErrInvalid, cfg.Amplifi.URL)
		}
	}
	if cfg.Listen.Port < 1 || cfg.Listen.Port > 65535 {
		return fmt.Errorf("%w: listen.port %d out of range", ErrInvalid, cfg.Listen.Port)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, cfg.LogLevel)
	}
	return nil
}
