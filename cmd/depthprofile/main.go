// Command depthprofile extracts depth profiles from a catalog of gridded
// bathymetry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfg *Config

	rootCmd := &cobra.Command{
		Use:           "depthprofile",
		Short:         "Extract depth profiles from gridded bathymetry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = LoadConfig(v)
			if err != nil {
				return err
			}
			SetupLogging(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file")
	flags.String("catalog-driver", defaultCatalogDriver, "catalog driver (sqlite, pgx, or json)")
	flags.String("catalog-dsn", defaultCatalogDSN, "catalog data source name")
	flags.String("catalog-table", defaultCatalogTable, "catalog table")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, or error)")
	flags.String("log-format", defaultLogFormat, "log format (json or text)")
	for key, flag := range map[string]string{
		"config":         "config",
		"catalog.driver": "catalog-driver",
		"catalog.dsn":    "catalog-dsn",
		"catalog.table":  "catalog-table",
		"log.level":      "log-level",
		"log.format":     "log-format",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}

	config := func() *Config { return cfg }
	rootCmd.AddCommand(
		newLocationsCmd(config),
		newProfileCmd(config),
		newDistanceCmd(),
		newImportGeoTIFFCmd(config),
		newServeCmd(v, config),
	)
	return rootCmd
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return newRootCmd().ExecuteContext(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
