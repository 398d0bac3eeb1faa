package models

// Position is a point on the warehouse floor plane.
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// AGVStatus is the fleet status row returned by the simulation placeholder.
type AGVStatus struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"` // "working", "idle", "charging"
	Battery     int      `json:"battery"`
	Position    Position `json:"position"`
	CurrentTask *string  `json:"currentTask"`
	HasCargo    bool     `json:"hasCargo"`
}

// SimulationTask is one queued AGV task returned by the simulation placeholder.
type SimulationTask struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Target   string `json:"target"`
	Priority string `json:"priority"` // "high", "normal", "low"
	Status   string `json:"status"`   // "pending", "in_progress", "done"
}
