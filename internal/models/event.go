package models

// ChangeType names a mutation published on the layout change feed.
type ChangeType string

const (
	ChangeLayoutCreated ChangeType = "layout:created"
	ChangeLayoutUpdated ChangeType = "layout:updated"
	ChangeLayoutDeleted ChangeType = "layout:deleted"
	ChangeObjectAdded   ChangeType = "object:added"
	ChangeObjectUpdated ChangeType = "object:updated"
	ChangeObjectDeleted ChangeType = "object:deleted"
	ChangePathAdded     ChangeType = "path:added"
	ChangePathDeleted   ChangeType = "path:deleted"
)

// ChangeEvent describes one successful mutation.
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	LayoutID  string     `json:"layoutId"`
	EntityID  string     `json:"entityId,omitempty"` // object or path id for nested changes
	Timestamp int64      `json:"timestamp"`          // Unix ms
}
