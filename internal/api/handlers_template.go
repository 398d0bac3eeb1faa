// handlers_template.go - Starter layout template handlers
package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/warehouse-twin/backend/internal/models"
)

// TemplateHandlerImpl implements the TemplateHandler interface
type TemplateHandlerImpl struct {
	service LayoutService
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(service LayoutService) TemplateHandler {
	return &TemplateHandlerImpl{service: service}
}

// HandleListTemplates lists the available templates
func (h *TemplateHandlerImpl) HandleListTemplates(c echo.Context) error {
	templates, err := h.service.ListTemplates(c.Request().Context())
	if err != nil {
		return NewInternalError("Failed to list templates", err)
	}
	return c.JSON(http.StatusOK, templates)
}

// HandleInstantiateTemplate creates a layout from a template. The optional
// body overrides name and dimensions.
func (h *TemplateHandlerImpl) HandleInstantiateTemplate(c echo.Context) error {
	name := c.Param("name")

	var draft models.LayoutDraft
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("Failed to read request body", err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		c.Request().Body = io.NopCloser(bytes.NewReader(body))
		if err := bindObject(c, &draft); err != nil {
			return err
		}
	}

	created, err := h.service.CreateFromTemplate(c.Request().Context(), name, draft)
	if err != nil {
		return serviceError(err, "", name)
	}
	return c.JSON(http.StatusCreated, created)
}
