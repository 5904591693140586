package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mosaicnetworks/trustflood/src/config"
	"github.com/mosaicnetworks/trustflood/src/service"
	"github.com/mosaicnetworks/trustflood/src/simulator"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that runs a simulation
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a simulation",
		PreRunE: loadConfig,
		RunE:    runSimulation,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runSimulation(cmd *cobra.Command, args []string) error {
	conf := &_config.Simulation
	logger := conf.Logger()

	sim, err := simulator.NewSimulator(conf)
	if err != nil {
		logger.Error("Cannot initialize simulator: ", err)
		return err
	}

	var srv *service.Service
	if !conf.NoService {
		srv = service.NewService(conf.ServiceAddr, sim, logger)
		go srv.Serve()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	//Relay SIGINT and SIGTERM as a cancellation of the simulation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			logger.Info("Interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := sim.Run(ctx)

	if runErr == nil && _config.Linger > 0 {
		logger.WithField("linger", _config.Linger).Info("Rounds done, service still up")
		select {
		case <-time.After(_config.Linger):
		case <-ctx.Done():
		}
	}

	stopErr := sim.Stop()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Service shutdown")
		}
	}

	if runErr != nil && runErr != context.Canceled {
		return runErr
	}

	return stopErr
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Simulation.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Simulation.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-dir", _config.Simulation.LogDir, "Also write info and debug logs to files in this directory")

	// Network
	cmd.Flags().IntP("nodes", "n", _config.Simulation.Nodes, "Number of nodes")
	cmd.Flags().IntP("events", "e", _config.Simulation.Events, "Number of events to inject")
	cmd.Flags().Duration("delay", _config.Simulation.Delay, "Transmission delay of every message")
	cmd.Flags().Duration("interval", _config.Simulation.Interval, "Time between two injected events")
	cmd.Flags().Duration("collect-timeout", _config.Simulation.CollectTimeout, "Max time a node waits for its peers' reports (0 scores what has already arrived)")
	cmd.Flags().Int64("seed", _config.Simulation.Seed, "Seed of the injection order (0 for random)")

	// Faults
	cmd.Flags().StringSlice("corrupt", []string{}, "IDs of nodes that tamper with the events they forward")
	cmd.Flags().StringSlice("silent", []string{}, "IDs of nodes that never forward events")

	// Store
	cmd.Flags().Bool("store", _config.Simulation.Store, "Record rounds in badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Simulation.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Simulation.CacheSize, "Number of items in in-memory caches")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Simulation.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Simulation.NoService, "Disable HTTP service")
	cmd.Flags().Duration("linger", _config.Linger, "Keep the HTTP service up for this long after the last round")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Simulation.SetDataDir(_config.Simulation.DataDir)

	// the config file may have changed the log level
	_config.Simulation.BaseLogger().Level = config.LogLevel(_config.Simulation.LogLevel)

	if _config.Simulation.LogDir != "" {
		if err := addLogFileHook(_config.Simulation.BaseLogger(), _config.Simulation.LogDir); err != nil {
			return err
		}
	}

	logFields := logrus.Fields{
		"DataDir":        _config.Simulation.DataDir,
		"LogLevel":       _config.Simulation.LogLevel,
		"Nodes":          _config.Simulation.Nodes,
		"Events":         _config.Simulation.Events,
		"Delay":          _config.Simulation.Delay,
		"Interval":       _config.Simulation.Interval,
		"CollectTimeout": _config.Simulation.CollectTimeout,
		"Corrupt":        _config.Simulation.Corrupt,
		"Silent":         _config.Simulation.Silent,
		"Seed":           _config.Simulation.Seed,
		"Store":          _config.Simulation.Store,
		"CacheSize":      _config.Simulation.CacheSize,
		"NoService":      _config.Simulation.NoService,
	}

	if _config.Simulation.Store {
		logFields["DatabaseDir"] = _config.Simulation.DatabaseDir
	}

	if !_config.Simulation.NoService {
		logFields["ServiceAddr"] = _config.Simulation.ServiceAddr
		logFields["Linger"] = _config.Linger
	}

	_config.Simulation.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/trustflood.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.Simulation.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Simulation.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Simulation.Logger().Debugf("No config file found in: %s", _config.Simulation.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

// addLogFileHook copies info and debug entries, including warnings and
// errors, to files in dir.
func addLogFileHook(logger *logrus.Logger, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	infoFile := filepath.Join(dir, "trustflood_info.log")
	debugFile := filepath.Join(dir, "trustflood_debug.log")

	pathMap := lfshook.PathMap{
		logrus.DebugLevel: debugFile,
		logrus.InfoLevel:  infoFile,
		logrus.WarnLevel:  infoFile,
		logrus.ErrorLevel: infoFile,
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return nil
}
