package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warehouse-twin/backend/internal/config"
	"github.com/warehouse-twin/backend/internal/logging"
	"github.com/warehouse-twin/backend/internal/storage"
)

// ErrDestinationNotEmpty is returned when migrating onto existing layouts
// without --force.
var ErrDestinationNotEmpty = errors.New("destination already holds layouts")

type migrateOptions struct {
	from  string
	to    string
	force bool
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every layout from one storage backend to another",
		Example: `  twin-server migrate --from file --to sqlite
  twin-server migrate --from sqlite --to postgres --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			defer func() { _ = logger.Close() }()

			n, err := migrate(cmd.Context(), cfg, opts, logger.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s migrated %d layouts from %s to %s\n",
				color.GreenString("✓"), n, opts.from, opts.to)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "file", "source storage driver")
	cmd.Flags().StringVar(&opts.to, "to", "", "destination storage driver")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite layouts already in the destination")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// migrate loads the full collection from the source backend and saves it to
// the destination in one Save.
func migrate(ctx context.Context, cfg *config.AppConfig, opts *migrateOptions, logger zerolog.Logger) (int, error) {
	for _, d := range []string{opts.from, opts.to} {
		if !slices.Contains(storage.Drivers(), d) {
			return 0, fmt.Errorf("unknown storage driver %q", d)
		}
	}
	if opts.from == opts.to {
		return 0, errors.New("source and destination drivers are the same")
	}

	src, err := storage.Open(ctx, storageOptions(cfg, opts.from), logger)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := storage.Open(ctx, storageOptions(cfg, opts.to), logger)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}
	defer func() { _ = dst.Close() }()

	layouts, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load source: %w", err)
	}

	if !opts.force {
		existing, err := dst.Load(ctx)
		if err != nil {
			return 0, fmt.Errorf("load destination: %w", err)
		}
		if len(existing) > 0 {
			return 0, fmt.Errorf("%w (%d layouts), use --force to overwrite", ErrDestinationNotEmpty, len(existing))
		}
	}

	if err := dst.Save(ctx, layouts); err != nil {
		return 0, fmt.Errorf("save destination: %w", err)
	}
	logger.Info().Str("from", opts.from).Str("to", opts.to).Int("layouts", len(layouts)).Msg("migration complete")
	return len(layouts), nil
}
