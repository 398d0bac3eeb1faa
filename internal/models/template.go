package models

// LayoutTemplate is a starter layout read from a YAML file under the
// templates directory.
type LayoutTemplate struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description"`
	Width       *float64     `json:"width,omitempty" yaml:"width"`
	Depth       *float64     `json:"depth,omitempty" yaml:"depth"`
	Height      *float64     `json:"height,omitempty" yaml:"height"`
	GridSize    *float64     `json:"gridSize,omitempty" yaml:"grid_size"`
	Objects     []Attributes `json:"objects,omitempty" yaml:"objects"`
	Paths       []Attributes `json:"paths,omitempty" yaml:"paths"`
}

// Draft converts the template's scalar fields into a LayoutDraft.
func (t *LayoutTemplate) Draft() LayoutDraft {
	var d LayoutDraft
	if t.Name != "" {
		d.Name = Some(t.Name)
	}
	if t.Width != nil {
		d.Width = Some(*t.Width)
	}
	if t.Depth != nil {
		d.Depth = Some(*t.Depth)
	}
	if t.Height != nil {
		d.Height = Some(*t.Height)
	}
	if t.GridSize != nil {
		d.GridSize = Some(*t.GridSize)
	}
	return d
}

// TemplateInfo lists an available template.
type TemplateInfo struct {
	ID          string `json:"id"` // file name without extension
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ObjectCount int    `json:"objectCount"`
	PathCount   int    `json:"pathCount"`
}
