package commands

import (
	"time"

	"github.com/mosaicnetworks/trustflood/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Simulation config.Config `mapstructure:",squash"`

	// Linger keeps the HTTP service up for this long after the last round,
	// unless the process is interrupted first. Zero stops right away.
	Linger time.Duration `mapstructure:"linger"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Simulation: *config.NewDefaultConfig(),
		Linger:     0,
	}
}
