// Package cmd implements the kcvlog command line interface. All commands
// operate directly on a data directory through the runtime.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/kcvlog/internal/config"
	"github.com/rzbill/kcvlog/internal/kcv/pebblekcv"
	"github.com/rzbill/kcvlog/internal/runtime"
	"github.com/rzbill/kcvlog/pkg/log"
)

// NewRootCmd builds the kcvlog root command.
func NewRootCmd(logger log.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kcvlog",
		Short: "kcvlog CLI",
		Long:  "kcvlog is a durable, partitioned message log on a key-column-value store. This CLI produces to and tails logs in a local data directory.",
	}
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory")
	rootCmd.PersistentFlags().String("config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().String("fsync", "always", "Fsync mode: always|interval|never")

	rootCmd.AddCommand(newProduceCmd(logger))
	rootCmd.AddCommand(newTailCmd(logger))
	rootCmd.AddCommand(newInfoCmd(logger))
	return rootCmd
}

// openRuntime builds a Runtime from the persistent flags.
func openRuntime(cmd *cobra.Command, logger log.Logger) (*runtime.Runtime, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		return nil, fmt.Errorf("--data-dir is required")
	}
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		return nil, err
	}

	fsyncFlag, _ := cmd.Flags().GetString("fsync")
	var mode pebblekcv.FsyncMode
	switch fsyncFlag {
	case "always":
		mode = pebblekcv.FsyncModeAlways
	case "interval":
		mode = pebblekcv.FsyncModeInterval
	case "never":
		mode = pebblekcv.FsyncModeNever
	default:
		return nil, fmt.Errorf("invalid --fsync; use always|interval|never")
	}

	return runtime.Open(runtime.Options{
		DataDir: dataDir,
		Fsync:   mode,
		Config:  cfg,
		Logger:  logger,
	})
}
