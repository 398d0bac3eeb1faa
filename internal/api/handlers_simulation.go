// handlers_simulation.go - Placeholder AGV fleet endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/warehouse-twin/backend/internal/models"
)

// SimulationHandlerImpl serves fixed AGV and task data until a live
// simulation feed exists.
type SimulationHandlerImpl struct{}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler() SimulationHandler {
	return &SimulationHandlerImpl{}
}

// HandleGetAGVs returns the canned AGV fleet status
func (h *SimulationHandlerImpl) HandleGetAGVs(c echo.Context) error {
	return c.JSON(http.StatusOK, mockAGVs())
}

// HandleGetTasks returns the canned task queue
func (h *SimulationHandlerImpl) HandleGetTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, mockTasks())
}

func mockAGVs() []models.AGVStatus {
	task := "前往貨架 A-03 取貨"
	return []models.AGVStatus{
		{
			ID:          "AGV-001",
			Status:      "working",
			Battery:     85,
			Position:    models.Position{X: 10.5, Z: 15.2},
			CurrentTask: &task,
			HasCargo:    false,
		},
		{
			ID:          "AGV-002",
			Status:      "idle",
			Battery:     92,
			Position:    models.Position{X: 5.0, Z: 8.0},
			CurrentTask: nil,
			HasCargo:    false,
		},
	}
}

func mockTasks() []models.SimulationTask {
	return []models.SimulationTask{
		{ID: "TASK-001", Type: "取貨", Target: "貨架 A-03", Priority: "high", Status: "pending"},
		{ID: "TASK-002", Type: "送貨", Target: "出貨站 B-01", Priority: "normal", Status: "in_progress"},
	}
}
