package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/api/logging"
)

// common holds the state shared by all commands.
type common struct {
	configPath string
	logLevel   string
	simulate   bool

	cfg config.Configuration
}

func newRootCmd() *cobra.Command {
	comm := &common{}

	rootCmd := &cobra.Command{
		Use:           "nativebluetooth",
		Short:         "Inspect and stream Bluetooth serial accessories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return comm.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logging.Logger().Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&comm.configPath, "config", "c", "", "path to a YAML configuration file")
	flags.StringVar(&comm.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&comm.simulate, "simulate", false, "use the simulated accessory driver")

	rootCmd.AddCommand(
		newInfoCmd(comm),
		newDevicesCmd(comm),
		newStreamCmd(comm),
	)

	return rootCmd
}

func (c *common) setup(cmd *cobra.Command) error {
	c.cfg = config.New()
	if c.configPath != "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}

		c.cfg = cfg
	}

	if cmd.Flags().Changed("log-level") {
		c.cfg.LogLevel = c.logLevel
	}
	if cmd.Flags().Changed("simulate") {
		c.cfg.Simulate = c.simulate
	}

	logger, err := logging.New(c.cfg)
	if err != nil {
		return err
	}

	logging.SetLogger(logger)
	logger.Debug("Configuration loaded",
		zap.String("config_path", c.configPath),
		zap.Bool("simulate", c.cfg.Simulate),
	)

	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
