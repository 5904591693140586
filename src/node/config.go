package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/metrics"
	"github.com/sirupsen/logrus"
)

// Config holds the parameters shared by the nodes and consumers of a network.
type Config struct {
	// TransmissionDelay is slept by the receiving side of every Receive and
	// Forward, simulating network latency.
	TransmissionDelay time.Duration `mapstructure:"delay"`

	// CollectTimeout is how long a node keeps waiting for its peers' reports
	// after broadcasting an event. Zero means the node only scores the reports
	// that have already arrived.
	CollectTimeout time.Duration `mapstructure:"collect-timeout"`

	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// NewConfig ...
func NewConfig(delay time.Duration,
	collectTimeout time.Duration,
	logger *logrus.Logger,
	m *metrics.Metrics) *Config {

	return &Config{
		TransmissionDelay: delay,
		CollectTimeout:    collectTimeout,
		Logger:            logger,
		Metrics:           m,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		TransmissionDelay: 10 * time.Millisecond,
		CollectTimeout:    0,
		Logger:            logger,
	}
}

// TestConfig returns a config with short delays and a logger that writes to
// the test log. Nodes wait for their peers' reports so that network tests do
// not depend on goroutine scheduling.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.TransmissionDelay = time.Millisecond
	config.CollectTimeout = 200 * time.Millisecond
	config.Logger = common.NewTestLogger(t, logrus.DebugLevel)
	return config
}
