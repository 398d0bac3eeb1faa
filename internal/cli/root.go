// Package cli provides the command-line interface for the layout server.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warehouse-twin/backend/internal/config"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
}

// newRootCmd creates the root command. Running it without a subcommand
// starts the server.
func newRootCmd(info BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "twin-server",
		Short: "Warehouse digital twin layout server",
		Long: `Serves the warehouse layout editor API: layouts, object placements,
AGV paths, starter templates and a live change feed.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, info)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the XML config file (default: next to the executable)")

	cmd.AddCommand(newServeCmd(flags, info))
	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newVersionCmd(info))
	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return fmt.Sprintf("%s (built: %s)", info.Version, info.BuildTime)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	return newRootCmd(info).ExecuteContext(ctx)
}

// loadConfig resolves the config path and loads it.
func loadConfig(flags *globalFlags) (*config.AppConfig, string, error) {
	path := flags.configPath
	if path == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get executable path: %w", err)
		}
		path = filepath.Join(filepath.Dir(exePath), config.DefaultFileName)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
