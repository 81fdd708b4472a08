// Command wastedesk runs the waste administration service and its
// maintenance tasks.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gartstein/wastedesk/internal/wastedesk/config"
	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
)

const appName = "wastedesk"

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Waste administration with LMA agreement resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML); defaults to ./config/config.yaml")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the gRPC and HTTP servers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(configPath, func(rt *app) error {
					return serve(cmd.Context(), rt)
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the seed fixtures into collections that are missing",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(configPath, func(rt *app) error {
					return seed(cmd.Context(), rt)
				})
			},
		},
		auditCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			},
		},
	)
	return cmd
}

func auditCmd(configPath *string) *cobra.Command {
	var (
		resourceID string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the newest audit log records as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*configPath, func(rt *app) error {
				store, err := openStore(cmd.Context(), rt.cfg, rt.logger)
				if err != nil {
					return err
				}
				defer store.Close()

				svc := controller.NewService(db.NewCollections(store), events.NopProducer{}, nil, rt.logger)
				records, err := svc.ListAudit(cmd.Context(), resourceID, limit)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			})
		},
	}
	cmd.Flags().StringVar(&resourceID, "resource", "", "Only records of this resource id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records (0 for all)")
	return cmd
}

// app is the configuration and logger shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func withApp(configPath string, fn func(rt *app) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	return fn(&app{cfg: cfg, logger: logger})
}
