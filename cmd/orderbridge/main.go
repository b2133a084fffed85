package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orderbridge/internal/common"
)

var version = "dev"

type rootFlags struct {
	config  string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "orderbridge",
		Short:         "Turn platform documents into patient and order records",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.config, "config", os.Getenv("ORDERBRIDGE_CONFIG"), "YAML config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newExtractCmd(flags),
		newSplitCmd(flags),
		newUploadCmd(flags),
		newCleanCmd(flags),
		newTextCmd(flags),
	)
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, c.UsageString())
	})
	return root
}

// setup loads the configuration and installs the text logger every
// subcommand writes to.
func (f *rootFlags) setup() (*common.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(f.config)
	if err != nil {
		logger.Error("config.load.failed", "path", f.config, "error", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

// fail logs err and returns it so cobra exits non-zero.
func fail(logger *slog.Logger, event string, err error, args ...any) error {
	logger.Error(event, append(args, "error", err)...)
	return err
}
