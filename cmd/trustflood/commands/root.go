package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for trustflood
var RootCmd = &cobra.Command{
	Use:              "trustflood",
	Short:            "trustflood peer-scoring network simulator",
	TraverseChildren: true,
}
