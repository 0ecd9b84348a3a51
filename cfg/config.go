package cfg

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/SSSOC-CAN/tinysa-plugin/tinysa"
	bg "github.com/SSSOCPaulCote/blunderguard"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v2"
)

const (
	ErrInvalidConfig = bg.Error("invalid tinySA plugin config")

	defaultPollingInterval = 1
)

type Config struct {
	Influx           bool   `yaml:"Influx"`
	InfluxURL        string `yaml:"InfluxURL"`
	InfuxAPIToken    string `yaml:"InfluxAPIToken"`
	InfluxOrgName    string `yaml:"InfluxOrgName"`
	InfluxBucketName string `yaml:"InfluxBucketName"`
	InfluxSkipTLS    bool   `yaml:"InfluxSkipTLS"`
	Port             string `yaml:"Port"`
	Backend          string `yaml:"Backend"`
	BaudRate         int    `yaml:"BaudRate"`
	ReadTimeoutMs    int64  `yaml:"ReadTimeoutMs"`
	MaxIdleReads     int    `yaml:"MaxIdleReads"`
	DeadlineMs       int64  `yaml:"DeadlineMs"`
	PromptMarker     string `yaml:"PromptMarker"`
	PollingInterval  int64  `yaml:"PollingInterval"`
	Trace            int    `yaml:"Trace"`
	LogLevel         string `yaml:"LogLevel"`
	MetricsAddr      string `yaml:"MetricsAddr"`
}

var configFileName = "tinysa.yaml"

// DefaultConfigPath is where InitConfig looks for the config file
func DefaultConfigPath() string {
	// Use lani appdata dir for tinySA plugin config
	return filepath.Join(btcutil.AppDataDir("fmtd", false), configFileName)
}

// InitConfig initializes the config from the config YAML file
func InitConfig() (*Config, error) {
	return InitConfigFromPath(DefaultConfigPath())
}

// InitConfigFromPath reads, defaults and validates the YAML file at path
func InitConfigFromPath(path string) (*Config, error) {
	cfgBytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(cfgBytes, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills in defaults and rejects values the client cannot use
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = tinysa.BackendSerial
	}
	switch c.Backend {
	case tinysa.BackendSerial, tinysa.BackendTarm, tinysa.BackendTCP:
	default:
		return fmt.Errorf("%w: unknown Backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.BaudRate == 0 {
		c.BaudRate = tinysa.DefaultBaudRate
	}
	if c.ReadTimeoutMs == 0 {
		c.ReadTimeoutMs = tinysa.DefaultTimeout.Milliseconds()
	}
	if c.MaxIdleReads == 0 && c.DeadlineMs == 0 {
		c.MaxIdleReads = tinysa.DefaultMaxIdleReads
	}
	if c.PromptMarker == "" {
		c.PromptMarker = tinysa.DefaultDelimiter
	}
	if c.PollingInterval == 0 {
		c.PollingInterval = defaultPollingInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = zerolog.InfoLevel.String()
	}
	switch {
	case c.BaudRate < 0:
		return fmt.Errorf("%w: BaudRate %d", ErrInvalidConfig, c.BaudRate)
	case c.ReadTimeoutMs < 0:
		return fmt.Errorf("%w: ReadTimeoutMs %d", ErrInvalidConfig, c.ReadTimeoutMs)
	case c.MaxIdleReads < 0:
		return fmt.Errorf("%w: MaxIdleReads %d", ErrInvalidConfig, c.MaxIdleReads)
	case c.DeadlineMs < 0:
		return fmt.Errorf("%w: DeadlineMs %d", ErrInvalidConfig, c.DeadlineMs)
	case c.PollingInterval < 0:
		return fmt.Errorf("%w: PollingInterval %d", ErrInvalidConfig, c.PollingInterval)
	case c.Trace < 0 || c.Trace > 2:
		return fmt.Errorf("%w: Trace %d, must be 0..2", ErrInvalidConfig, c.Trace)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: LogLevel %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// ReadTimeout is the inactivity timeout applied to each port read
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// ReadPolicy is the frame reader give-up policy
func (c *Config) ReadPolicy() tinysa.ReadPolicy {
	return tinysa.ReadPolicy{
		MaxIdleReads: c.MaxIdleReads,
		Deadline:     time.Duration(c.DeadlineMs) * time.Millisecond,
	}
}

// Level returns the parsed log level, info if unset
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// ConnectionOptions turns the config into tinysa.Open options
func (c *Config) ConnectionOptions(logger zerolog.Logger) []tinysa.Option {
	return []tinysa.Option{
		tinysa.WithBackend(c.Backend),
		tinysa.WithBaudRate(c.BaudRate),
		tinysa.WithReadPolicy(c.ReadPolicy()),
		tinysa.WithPromptMarker(c.PromptMarker),
		tinysa.WithLogger(logger),
	}
}
