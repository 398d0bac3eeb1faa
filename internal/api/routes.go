// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/warehouse-twin/backend/internal/metrics"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Service LayoutService
	Hub     *ChangeHub
	Version string
}

// Handlers holds all handler instances
type Handlers struct {
	Health     HealthHandler
	Layout     LayoutHandler
	Object     ObjectHandler
	Path       PathHandler
	Template   TemplateHandler
	Simulation SimulationHandler
	Hub        *ChangeHub
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version),
		Layout:     NewLayoutHandler(deps.Service),
		Object:     NewObjectHandler(deps.Service),
		Path:       NewPathHandler(deps.Service),
		Template:   NewTemplateHandler(deps.Service),
		Simulation: NewSimulationHandler(),
		Hub:        deps.Hub,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Layouts
	layouts := apiGroup.Group("/layouts")
	layouts.GET("", handlers.Layout.HandleListLayouts)
	layouts.POST("", handlers.Layout.HandleCreateLayout)
	layouts.GET("/:id", handlers.Layout.HandleGetLayout)
	layouts.PUT("/:id", handlers.Layout.HandleUpdateLayout)
	layouts.DELETE("/:id", handlers.Layout.HandleDeleteLayout)
	layouts.GET("/:id/export.msgpack", handlers.Layout.HandleExportLayoutMsgpack)

	// Objects
	layouts.GET("/:id/objects", handlers.Object.HandleListObjects)
	layouts.POST("/:id/objects", handlers.Object.HandleAddObject)
	layouts.PUT("/:id/objects/:objectId", handlers.Object.HandleUpdateObject)
	layouts.DELETE("/:id/objects/:objectId", handlers.Object.HandleDeleteObject)

	// AGV paths
	layouts.GET("/:id/paths", handlers.Path.HandleListPaths)
	layouts.POST("/:id/paths", handlers.Path.HandleAddPath)
	layouts.DELETE("/:id/paths/:pathId", handlers.Path.HandleDeletePath)

	// Templates
	apiGroup.GET("/templates", handlers.Template.HandleListTemplates)
	apiGroup.POST("/templates/:name/instantiate", handlers.Template.HandleInstantiateTemplate)

	// Simulation placeholders
	apiGroup.GET("/simulation/agvs", handlers.Simulation.HandleGetAGVs)
	apiGroup.GET("/simulation/tasks", handlers.Simulation.HandleGetTasks)

	// Change feed
	if handlers.Hub != nil {
		apiGroup.GET("/ws/layouts", handlers.Hub.HandleWebSocket)
	}
}

// MiddlewareConfig controls SetupMiddleware
type MiddlewareConfig struct {
	Logger         zerolog.Logger
	RequestLogging bool
	EnableCORS     bool
	AllowOrigins   []string
	BodyLimit      string
	Gzip           bool
	Timeout        time.Duration
	Metrics        *metrics.Metrics
	MetricsPath    string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = ErrorHandler
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 * 1024,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			cfg.Logger.Error().Err(err).Bytes("stack", stack).Msg("panic recovered")
			return err
		},
	}))
	e.Use(middleware.RequestID())

	if cfg.RequestLogging {
		e.Use(requestLogger(cfg.Logger))
	}

	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware(func(c echo.Context) bool {
			return c.Path() == cfg.MetricsPath || isWebSocket(c)
		}))
	}

	if cfg.Timeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.Timeout,
			Skipper: isWebSocket,
		}))
	}

	if cfg.Gzip {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   5,
			Skipper: isWebSocket,
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// requestLogger logs one line per request through zerolog
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	reqLog := logger.With().Str("component", "api").Logger()
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/health"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := reqLog.Info()
			if v.Error != nil {
				ev = reqLog.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func isWebSocket(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket")
}

// SplitOrigins parses a comma separated origin list
func SplitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
