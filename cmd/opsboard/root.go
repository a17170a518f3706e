package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard"
	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/logging"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "opsboard",
		Short:         "Ops dashboard for an OpenClaw workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newJobsCmd(),
		newAuthCmd(flags),
		newArchiveCmd(flags),
		newPollCmd(flags),
	)
	return root
}

// setup loads the config and builds the logger
func (f *globalFlags) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging, f.verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withManager runs fn against a manager that is closed afterwards
func (f *globalFlags) withManager(fn func(*opsboard.Manager, *zap.Logger) error) error {
	cfg, logger, err := f.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := opsboard.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("Failed to close manager", zap.Error(err))
		}
	}()
	return fn(m, logger)
}
