// handlers_object.go - Object placement and AGV path handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/warehouse-twin/backend/internal/models"
)

// ObjectHandlerImpl implements the ObjectHandler interface
type ObjectHandlerImpl struct {
	service LayoutService
}

// NewObjectHandler creates a new object handler
func NewObjectHandler(service LayoutService) ObjectHandler {
	return &ObjectHandlerImpl{service: service}
}

// HandleListObjects returns the objects of a layout
func (h *ObjectHandlerImpl) HandleListObjects(c echo.Context) error {
	layoutID := c.Param("id")
	objects, err := h.service.ListObjects(c.Request().Context(), layoutID)
	if err != nil {
		return serviceError(err, layoutID, "")
	}
	return c.JSON(http.StatusOK, objects)
}

// HandleAddObject appends an object to a layout
func (h *ObjectHandlerImpl) HandleAddObject(c echo.Context) error {
	layoutID := c.Param("id")
	fields := models.NewAttributes()
	if err := bindObject(c, &fields); err != nil {
		return err
	}

	obj, err := h.service.AddObject(c.Request().Context(), layoutID, fields)
	if err != nil {
		return serviceError(err, layoutID, "")
	}
	return c.JSON(http.StatusCreated, obj)
}

// HandleUpdateObject merges the request body into an object
func (h *ObjectHandlerImpl) HandleUpdateObject(c echo.Context) error {
	layoutID := c.Param("id")
	objectID := c.Param("objectId")
	fields := models.NewAttributes()
	if err := bindObject(c, &fields); err != nil {
		return err
	}

	obj, err := h.service.UpdateObject(c.Request().Context(), layoutID, objectID, fields)
	if err != nil {
		return serviceError(err, layoutID, objectID)
	}
	return c.JSON(http.StatusOK, obj)
}

// HandleDeleteObject removes an object; absent objects also succeed
func (h *ObjectHandlerImpl) HandleDeleteObject(c echo.Context) error {
	layoutID := c.Param("id")
	if err := h.service.DeleteObject(c.Request().Context(), layoutID, c.Param("objectId")); err != nil {
		return serviceError(err, layoutID, "")
	}
	return respondSuccess(c)
}

// PathHandlerImpl implements the PathHandler interface. Paths have no
// update operation.
type PathHandlerImpl struct {
	service LayoutService
}

// NewPathHandler creates a new path handler
func NewPathHandler(service LayoutService) PathHandler {
	return &PathHandlerImpl{service: service}
}

// HandleListPaths returns the AGV paths of a layout
func (h *PathHandlerImpl) HandleListPaths(c echo.Context) error {
	layoutID := c.Param("id")
	paths, err := h.service.ListPaths(c.Request().Context(), layoutID)
	if err != nil {
		return serviceError(err, layoutID, "")
	}
	return c.JSON(http.StatusOK, paths)
}

// HandleAddPath appends a path to a layout
func (h *PathHandlerImpl) HandleAddPath(c echo.Context) error {
	layoutID := c.Param("id")
	fields := models.NewAttributes()
	if err := bindObject(c, &fields); err != nil {
		return err
	}

	p, err := h.service.AddPath(c.Request().Context(), layoutID, fields)
	if err != nil {
		return serviceError(err, layoutID, "")
	}
	return c.JSON(http.StatusCreated, p)
}

// HandleDeletePath removes a path; absent paths also succeed
func (h *PathHandlerImpl) HandleDeletePath(c echo.Context) error {
	layoutID := c.Param("id")
	if err := h.service.DeletePath(c.Request().Context(), layoutID, c.Param("pathId")); err != nil {
		return serviceError(err, layoutID, "")
	}
	return respondSuccess(c)
}
