// handlers_layout.go - Layout CRUD handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/warehouse-twin/backend/internal/models"
)

// LayoutHandlerImpl implements the LayoutHandler interface
type LayoutHandlerImpl struct {
	service LayoutService
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(service LayoutService) LayoutHandler {
	return &LayoutHandlerImpl{service: service}
}

// HandleListLayouts returns the summary of every layout
func (h *LayoutHandlerImpl) HandleListLayouts(c echo.Context) error {
	summaries, err := h.service.ListLayouts(c.Request().Context())
	if err != nil {
		return serviceError(err, "", "")
	}
	return c.JSON(http.StatusOK, summaries)
}

// HandleCreateLayout creates a layout from the request body
func (h *LayoutHandlerImpl) HandleCreateLayout(c echo.Context) error {
	var draft models.LayoutDraft
	if err := bindObject(c, &draft); err != nil {
		return err
	}

	created, err := h.service.CreateLayout(c.Request().Context(), draft)
	if err != nil {
		return serviceError(err, "", "")
	}
	return c.JSON(http.StatusCreated, created)
}

// HandleGetLayout returns one full layout
func (h *LayoutHandlerImpl) HandleGetLayout(c echo.Context) error {
	id := c.Param("id")
	l, err := h.service.GetLayout(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "")
	}
	return c.JSON(http.StatusOK, l)
}

// HandleUpdateLayout applies a partial update
func (h *LayoutHandlerImpl) HandleUpdateLayout(c echo.Context) error {
	id := c.Param("id")
	var patch models.LayoutPatch
	if err := bindObject(c, &patch); err != nil {
		return err
	}

	updated, err := h.service.UpdateLayout(c.Request().Context(), id, patch)
	if err != nil {
		return serviceError(err, id, "")
	}
	return c.JSON(http.StatusOK, updated)
}

// HandleDeleteLayout removes a layout; absent layouts also succeed
func (h *LayoutHandlerImpl) HandleDeleteLayout(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteLayout(c.Request().Context(), id); err != nil {
		return serviceError(err, id, "")
	}
	return respondSuccess(c)
}

// HandleExportLayoutMsgpack returns a full layout in MessagePack format
func (h *LayoutHandlerImpl) HandleExportLayoutMsgpack(c echo.Context) error {
	id := c.Param("id")
	l, err := h.service.GetLayout(c.Request().Context(), id)
	if err != nil {
		return serviceError(err, id, "")
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(l); err != nil {
		return NewInternalError("Failed to encode layout", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+id+`.msgpack"`)
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}
