// Package config provides XML-based configuration management for the layout server.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultFileName is the config file created next to the executable.
const DefaultFileName = "twin.config.xml"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"WarehouseTwin"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Defaults for new layouts
	Layout LayoutConfig `xml:"Layout"`

	// Logging configuration
	Logging LoggingConfig `xml:"Logging"`

	// Metrics configuration
	Metrics MetricsConfig `xml:"Metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int    `xml:"Port"`
	BindAddress     string `xml:"BindAddress"`
	EnableCORS      bool   `xml:"EnableCORS"`
	AllowOrigins    string `xml:"AllowOrigins"`
	ReadTimeout     int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout    int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout     int    `xml:"IdleTimeoutSeconds"`
	ShutdownTimeout int    `xml:"ShutdownTimeoutSeconds"`
	BodyLimit       string `xml:"BodyLimit"`
	EnableGzip      bool   `xml:"EnableGzip"`
	StaticDirectory string `xml:"StaticDirectory"`
}

// StorageConfig selects and configures the layout backend
type StorageConfig struct {
	Driver            string   `xml:"Driver"` // file, sqlite, postgres, duckdb, s3
	DataDirectory     string   `xml:"DataDirectory"`
	LayoutFile        string   `xml:"LayoutFile"`
	TemplateDirectory string   `xml:"TemplateDirectory"`
	SQLitePath        string   `xml:"SQLitePath"`
	PostgresDSN       string   `xml:"PostgresDSN"`
	DuckDBPath        string   `xml:"DuckDBPath"`
	DuckDBThreads     int      `xml:"DuckDBThreads"`
	S3                S3Config `xml:"S3"`
}

// S3Config contains S3 object storage settings
type S3Config struct {
	Bucket          string `xml:"Bucket"`
	Key             string `xml:"Key"`
	Region          string `xml:"Region"`
	Endpoint        string `xml:"Endpoint"`
	AccessKeyID     string `xml:"AccessKeyID"`
	SecretAccessKey string `xml:"SecretAccessKey"`
	UsePathStyle    bool   `xml:"UsePathStyle"`
}

// LayoutConfig holds the values applied to fields omitted on creation
type LayoutConfig struct {
	DefaultName     string  `xml:"DefaultName"`
	DefaultWidth    float64 `xml:"DefaultWidth"`
	DefaultDepth    float64 `xml:"DefaultDepth"`
	DefaultHeight   float64 `xml:"DefaultHeight"`
	DefaultGridSize float64 `xml:"DefaultGridSize"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level                string `xml:"Level"`
	Format               string `xml:"Format"` // console, json
	File                 string `xml:"File"`
	MaxSizeMB            int    `xml:"MaxSizeMB"`
	MaxBackups           int    `xml:"MaxBackups"`
	MaxAgeDays           int    `xml:"MaxAgeDays"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `xml:"Enabled"`
	Path    string `xml:"Path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            5000,
			BindAddress:     "0.0.0.0",
			EnableCORS:      true,
			AllowOrigins:    "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			IdleTimeout:     120,
			ShutdownTimeout: 10,
			BodyLimit:       "20M",
			EnableGzip:      true,
			StaticDirectory: "./static",
		},
		Storage: StorageConfig{
			Driver:            "file",
			DataDirectory:     "./data",
			LayoutFile:        "layouts.json",
			TemplateDirectory: "./data/defaults/layouts",
			DuckDBThreads:     2,
			S3: S3Config{
				Key:    "layouts.json",
				Region: "us-east-1",
			},
		},
		Layout: LayoutConfig{
			DefaultName:     "新布局",
			DefaultWidth:    60,
			DefaultDepth:    60,
			DefaultHeight:   5,
			DefaultGridSize: 0.6,
		},
		Logging: LoggingConfig{
			Level:                "info",
			Format:               "console",
			MaxSizeMB:            50,
			MaxBackups:           3,
			MaxAgeDays:           28,
			EnableRequestLogging: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadConfig loads configuration from XML file. A missing file is created with
// defaults. A .env file beside the config is loaded before environment
// overrides are applied.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath) //#nosec G304 -- operator-supplied config path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)

	// Existing process environment wins over .env
	envFile := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(configDir)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Warehouse Twin Layout Server Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail later at startup
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case "file", "sqlite", "duckdb":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage driver postgres requires PostgresDSN or DATABASE_URL")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage driver s3 requires S3.Bucket or S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	overrides := []struct {
		env    string
		target *string
	}{
		{"DATA_DIR", &c.Storage.DataDirectory},
		{"STORAGE_DRIVER", &c.Storage.Driver},
		{"DATABASE_URL", &c.Storage.PostgresDSN},
		{"SQLITE_PATH", &c.Storage.SQLitePath},
		{"DUCKDB_PATH", &c.Storage.DuckDBPath},
		{"TEMPLATE_DIR", &c.Storage.TemplateDirectory},
		{"STATIC_DIR", &c.Server.StaticDirectory},
		{"S3_BUCKET", &c.Storage.S3.Bucket},
		{"S3_REGION", &c.Storage.S3.Region},
		{"S3_ENDPOINT", &c.Storage.S3.Endpoint},
		{"AWS_ACCESS_KEY_ID", &c.Storage.S3.AccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", &c.Storage.S3.SecretAccessKey},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
		{"LOG_FILE", &c.Logging.File},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	paths := []*string{
		&c.Storage.DataDirectory,
		&c.Storage.TemplateDirectory,
		&c.Storage.SQLitePath,
		&c.Storage.DuckDBPath,
		&c.Server.StaticDirectory,
		&c.Logging.File,
	}
	for _, p := range paths {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.TemplateDirectory,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
