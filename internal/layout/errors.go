package layout

import "errors"

var (
	// ErrLayoutNotFound is returned when no stored layout has the requested id.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrObjectNotFound is returned by UpdateObject when the layout exists but
	// holds no object with the requested id.
	ErrObjectNotFound = errors.New("object not found")

	// ErrTemplateNotFound is returned when no template file matches a name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidTemplate wraps template files that fail to parse.
	ErrInvalidTemplate = errors.New("invalid layout template")
)
