package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/metrics"
	"github.com/mosaicnetworks/trustflood/src/node"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigName is the name of the optional config file, without
	// extension, looked up in the data directory.
	DefaultConfigName = "trustflood"
)

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultNodes          = 3
	DefaultEvents         = 10
	DefaultDelay          = 10 * time.Millisecond
	DefaultInterval       = 1000 * time.Millisecond
	DefaultCollectTimeout = 0
	DefaultSeed           = 0
	DefaultStore          = false
	DefaultCacheSize      = 1000
	DefaultServiceAddr    = "127.0.0.1:8000"
	DefaultNoService      = false
)

// Config contains all the configuration properties of a simulation.
type Config struct {
	// DataDir is the top-level directory containing the configuration file and
	// the database.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogDir, when set, is where info and debug logs are also written to.
	LogDir string `mapstructure:"log-dir"`

	// Nodes is the number of nodes in the network. They are fully connected.
	Nodes int `mapstructure:"nodes"`

	// Events is the number of events injected, one per round.
	Events int `mapstructure:"events"`

	// Delay is the simulated transmission delay of every message.
	Delay time.Duration `mapstructure:"delay"`

	// Interval is the pause between two injected events.
	Interval time.Duration `mapstructure:"interval"`

	// CollectTimeout is how long a node waits for its peers' reports after
	// broadcasting an event. Zero scores only the reports already received.
	CollectTimeout time.Duration `mapstructure:"collect-timeout"`

	// Corrupt lists the nodes that tamper with every event they forward.
	Corrupt []uint32 `mapstructure:"corrupt"`

	// Silent lists the nodes that never forward anything.
	Silent []uint32 `mapstructure:"silent"`

	// Seed seeds the shuffling of the injection order. Zero picks a seed from
	// the clock.
	Seed int64 `mapstructure:"seed"`

	// Store activates the Badger round ledger.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	// ServiceAddr is the address:port of the HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// NoService disables the HTTP service.
	NoService bool `mapstructure:"no-service"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:        DefaultDataDir(),
		LogLevel:       DefaultLogLevel,
		Nodes:          DefaultNodes,
		Events:         DefaultEvents,
		Delay:          DefaultDelay,
		Interval:       DefaultInterval,
		CollectTimeout: DefaultCollectTimeout,
		Corrupt:        []uint32{},
		Silent:         []uint32{},
		Seed:           DefaultSeed,
		Store:          DefaultStore,
		DatabaseDir:    DefaultDatabaseDir(),
		CacheSize:      DefaultCacheSize,
		ServiceAddr:    DefaultServiceAddr,
		NoService:      DefaultNoService,
	}

	return config
}

// NewTestConfig returns a config object with short timings and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.Delay = time.Millisecond
	config.Interval = 20 * time.Millisecond
	config.CollectTimeout = 200 * time.Millisecond
	config.NoService = true
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Validate checks that the configuration describes a runnable simulation.
func (c *Config) Validate() error {
	if c.Nodes < 1 {
		return fmt.Errorf("nodes must be at least 1, got %d", c.Nodes)
	}
	if c.Events < 0 {
		return fmt.Errorf("events must not be negative, got %d", c.Events)
	}
	if c.Delay < 0 || c.Interval < 0 || c.CollectTimeout < 0 {
		return fmt.Errorf("delay, interval and collect-timeout must not be negative")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache-size must be at least 1, got %d", c.CacheSize)
	}

	silent := make(map[uint32]bool, len(c.Silent))
	for _, id := range c.Silent {
		if int(id) >= c.Nodes {
			return fmt.Errorf("silent node %d does not exist", id)
		}
		silent[id] = true
	}
	for _, id := range c.Corrupt {
		if int(id) >= c.Nodes {
			return fmt.Errorf("corrupt node %d does not exist", id)
		}
		if silent[id] {
			return fmt.Errorf("node %d cannot be both silent and corrupt", id)
		}
	}

	if c.Store && c.DatabaseDir == "" {
		return fmt.Errorf("db must be set when store is enabled")
	}

	return nil
}

// NodeConfig returns the configuration shared by every node and consumer of
// the simulation.
func (c *Config) NodeConfig(m *metrics.Metrics) *node.Config {
	return node.NewConfig(c.Delay, c.CollectTimeout, c.BaseLogger(), m)
}

// BaseLogger returns the underlying logrus Logger, creating it with the
// configured level if necessary.
func (c *Config) BaseLogger() *logrus.Logger {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger
}

// Logger returns a formatted logrus Entry, with prefix set to "trustflood".
func (c *Config) Logger() *logrus.Entry {
	return c.BaseLogger().WithField("prefix", "trustflood")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level trustflood
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Trustflood")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Trustflood")
		} else {
			return filepath.Join(home, ".trustflood")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
