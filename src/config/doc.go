// Package config defines the configuration of a trustflood simulation.
//
// Whether the simulation is started from Go code or from the command line, it
// uses the Config object defined in this package. The command line binds its
// flags into the same structure through viper, and then overlays the values
// found in an optional configuration file in the data directory:
//
//  trustflood.toml // or .json, .yaml; keys are the same as the flag names
//
// Config also builds the logger shared by every component, and derives the
// node.Config handed to nodes and consumers.
package config
