package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/workbook-go/internal/auth"
	"github.com/tonimelisma/workbook-go/internal/config"
	"github.com/tonimelisma/workbook-go/internal/workbook"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg config.Config

// httpClientTimeout is the default timeout for HTTP requests.
// Prevents hung connections from blocking CLI commands indefinitely.
const httpClientTimeout = 30 * time.Second

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workbook-go",
		Short:   "Microsoft Graph workbook and mail CLI",
		Long:    "A CLI for Excel workbook ranges and tables on OneDrive, plus sending mail, via Microsoft Graph.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagConfigPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			resolvedCfg = cfg

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRangeCmd())
	cmd.AddCommand(newTableCmd())
	cmd.AddCommand(newMailCmd())

	return cmd
}

// buildLogger creates an slog.Logger configured by the CLI flags.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newManager constructs the credential manager from the resolved config.
// This may launch the interactive browser sign-in flow and blocks until the
// user completes or abandons it.
func newManager(ctx context.Context, logger *slog.Logger) (*auth.Manager, error) {
	return auth.NewManager(ctx, auth.Config{
		ClientID:  resolvedCfg.ClientID,
		TenantID:  resolvedCfg.TenantID,
		CacheFile: resolvedCfg.CacheFile,
	}, logger)
}

// newWorkbookClient wires the credential manager into a Graph workbook client.
func newWorkbookClient(ctx context.Context, logger *slog.Logger) (*workbook.Client, error) {
	manager, err := newManager(ctx, logger)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: httpClientTimeout}

	return workbook.NewClient(config.GraphBaseURL, httpClient, manager, logger), nil
}
