// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/warehouse-twin/backend/internal/models"
)

// LayoutService is the layout editing API consumed by the handlers.
// It is satisfied by *layout.Service.
type LayoutService interface {
	ListLayouts(ctx context.Context) ([]models.LayoutSummary, error)
	CreateLayout(ctx context.Context, draft models.LayoutDraft) (models.Layout, error)
	GetLayout(ctx context.Context, id string) (models.Layout, error)
	UpdateLayout(ctx context.Context, id string, patch models.LayoutPatch) (models.Layout, error)
	DeleteLayout(ctx context.Context, id string) error

	ListObjects(ctx context.Context, layoutID string) ([]models.Attributes, error)
	AddObject(ctx context.Context, layoutID string, fields models.Attributes) (models.Attributes, error)
	UpdateObject(ctx context.Context, layoutID, objectID string, fields models.Attributes) (models.Attributes, error)
	DeleteObject(ctx context.Context, layoutID, objectID string) error

	ListPaths(ctx context.Context, layoutID string) ([]models.Attributes, error)
	AddPath(ctx context.Context, layoutID string, fields models.Attributes) (models.Attributes, error)
	DeletePath(ctx context.Context, layoutID, pathID string) error

	ListTemplates(ctx context.Context) ([]models.TemplateInfo, error)
	CreateFromTemplate(ctx context.Context, id string, draft models.LayoutDraft) (models.Layout, error)
}

// LayoutHandler handles layout-level operations
type LayoutHandler interface {
	HandleListLayouts(c echo.Context) error
	HandleCreateLayout(c echo.Context) error
	HandleGetLayout(c echo.Context) error
	HandleUpdateLayout(c echo.Context) error
	HandleDeleteLayout(c echo.Context) error
	HandleExportLayoutMsgpack(c echo.Context) error
}

// ObjectHandler handles object placements inside a layout
type ObjectHandler interface {
	HandleListObjects(c echo.Context) error
	HandleAddObject(c echo.Context) error
	HandleUpdateObject(c echo.Context) error
	HandleDeleteObject(c echo.Context) error
}

// PathHandler handles AGV paths inside a layout
type PathHandler interface {
	HandleListPaths(c echo.Context) error
	HandleAddPath(c echo.Context) error
	HandleDeletePath(c echo.Context) error
}

// TemplateHandler handles starter layout templates
type TemplateHandler interface {
	HandleListTemplates(c echo.Context) error
	HandleInstantiateTemplate(c echo.Context) error
}

// SimulationHandler serves the placeholder AGV fleet endpoints
type SimulationHandler interface {
	HandleGetAGVs(c echo.Context) error
	HandleGetTasks(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
