package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/fileid"
	"github.com/tonimelisma/fileid/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd.
var (
	flagStore   string
	flagRoot    string
	flagJSON    bool
	flagVerbose bool
)

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fileidctl",
		Short:   "Administrative CLI for a fileid store",
		Long:    "Inspect and repair a File Identity Manager's backing store from a shell.",
		Version: version,
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagStore, "store", "", "path to the SQLite store (defaults to the platform data dir)")
	cmd.PersistentFlags().StringVar(&flagRoot, "root", "", "root directory for a Local FIM; omit to operate on an Arbitrary FIM")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info-level logging")

	cmd.AddCommand(newDropTableCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRmCmd())

	return cmd
}

// buildLogger returns a logger at info level when --verbose is set, warn
// otherwise.
func buildLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveStorePath applies the --store override over the platform default.
func resolveStorePath() (string, error) {
	if flagStore != "" {
		if err := config.ValidateAbsolute("store", flagStore); err != nil {
			return "", err
		}

		return flagStore, nil
	}

	path := config.DefaultStorePath()
	if path == "" {
		return "", fmt.Errorf("fileidctl: could not determine a default store path; pass --store")
	}

	return path, nil
}

// openManager opens a Local FIM if --root was given, else an Arbitrary FIM,
// against the resolved store path.
func openManager(ctx context.Context, logger *slog.Logger) (fileid.Manager, func() error, error) {
	storePath, err := resolveStorePath()
	if err != nil {
		return nil, nil, err
	}

	if flagRoot != "" {
		m, err := fileid.NewLocalManager(ctx, storePath, flagRoot, logger)
		if err != nil {
			return nil, nil, err
		}

		return m, m.Close, nil
	}

	m, err := fileid.NewArbitraryManager(ctx, storePath, logger)
	if err != nil {
		return nil, nil, err
	}

	return m, m.Close, nil
}
