package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/warehouse-twin/backend/internal/api"
	"github.com/warehouse-twin/backend/internal/config"
	"github.com/warehouse-twin/backend/internal/layout"
	"github.com/warehouse-twin/backend/internal/logging"
	"github.com/warehouse-twin/backend/internal/metrics"
	"github.com/warehouse-twin/backend/internal/models"
	"github.com/warehouse-twin/backend/internal/storage"
	"github.com/warehouse-twin/backend/internal/web"
)

func newServeCmd(flags *globalFlags, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, info)
		},
	}
}

func runServe(ctx context.Context, flags *globalFlags, info BuildInfo) error {
	cfg, configPath, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	backend, err := storage.Open(ctx, storageOptions(cfg, cfg.Storage.Driver), logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	var store storage.Store = backend
	var wsObserver api.ConnectionObserver
	if m != nil {
		store = storage.WithObserver(backend, m)
		wsObserver = m
	}

	hub := api.NewChangeHub(logger.Logger, wsObserver)
	defer hub.Close()

	svc := layout.NewService(store,
		layout.WithDefaults(models.LayoutDefaults{
			Name:     cfg.Layout.DefaultName,
			Width:    cfg.Layout.DefaultWidth,
			Depth:    cfg.Layout.DefaultDepth,
			Height:   cfg.Layout.DefaultHeight,
			GridSize: cfg.Layout.DefaultGridSize,
		}),
		layout.WithTemplateDir(cfg.Storage.TemplateDirectory),
		layout.WithNotifier(hub),
		layout.WithLogger(logger.Logger),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:         logger.Logger,
		RequestLogging: cfg.Logging.EnableRequestLogging,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   api.SplitOrigins(cfg.Server.AllowOrigins),
		BodyLimit:      cfg.Server.BodyLimit,
		Gzip:           cfg.Server.EnableGzip,
		Timeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Service: svc,
		Hub:     hub,
		Version: info.Version,
	}))
	if m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}

	frontend := false
	if staticFS, err := web.FileSystem(cfg.Server.StaticDirectory); err == nil {
		web.RegisterStaticRoutes(e, staticFS)
		frontend = true
	} else {
		logger.Warn().Str("dir", cfg.Server.StaticDirectory).Msg("frontend not found, serving API only")
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(os.Stdout, bannerInfo{
		version:    info.Version,
		buildTime:  info.BuildTime,
		configPath: configPath,
		addr:       cfg.GetServerAddr(),
		driver:     cfg.Storage.Driver,
		dataDir:    cfg.GetDataDir(),
		frontend:   frontend,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	hub.Close()
	return e.Shutdown(shutdownCtx)
}

// storageOptions maps the config onto storage.Options for driver.
func storageOptions(cfg *config.AppConfig, driver string) storage.Options {
	return storage.Options{
		Driver:        driver,
		DataDir:       cfg.Storage.DataDirectory,
		FileName:      cfg.Storage.LayoutFile,
		SQLitePath:    cfg.Storage.SQLitePath,
		PostgresDSN:   cfg.Storage.PostgresDSN,
		DuckDBPath:    cfg.Storage.DuckDBPath,
		DuckDBThreads: cfg.Storage.DuckDBThreads,
		S3: storage.S3Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Key:             cfg.Storage.S3.Key,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			PathStyle:       cfg.Storage.S3.UsePathStyle,
		},
	}
}

type bannerInfo struct {
	version    string
	buildTime  string
	configPath string
	addr       string
	driver     string
	dataDir    string
	frontend   bool
}

func printBanner(w io.Writer, b bannerInfo) {
	title := color.New(color.FgCyan, color.Bold).SprintFunc()
	label := color.New(color.FgHiBlack).SprintFunc()
	value := color.New(color.FgGreen).SprintFunc()

	mode := "API only"
	if b.frontend {
		mode = "API + editor"
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", title("Warehouse Twin Layout Server"))
	rows := []struct{ k, v string }{
		{"Version", b.version},
		{"Build Time", b.buildTime},
		{"Mode", mode},
		{"Config", b.configPath},
		{"Listen", "http://" + b.addr},
		{"Storage", b.driver},
		{"Data Dir", b.dataDir},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s\n", label(fmt.Sprintf("%-11s", r.k+":")), value(r.v))
	}
	fmt.Fprintln(w)
}
