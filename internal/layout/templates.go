package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warehouse-twin/backend/internal/models"
)

var templateExts = []string{".yaml", ".yml"}

// ListTemplates returns the templates found in the template directory,
// sorted by id. A missing directory yields an empty list; unparsable files
// are skipped with a warning.
func (s *Service) ListTemplates(ctx context.Context) ([]models.TemplateInfo, error) {
	out := []models.TemplateInfo{}
	if s.templateDir == "" {
		return out, nil
	}

	entries, err := os.ReadDir(s.templateDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		id, ok := templateID(entry.Name())
		if !ok {
			continue
		}
		tmpl, err := s.readTemplate(filepath.Join(s.templateDir, entry.Name()))
		if err != nil {
			s.log.Warn().Err(err).Str("template", entry.Name()).Msg("skipping layout template")
			continue
		}
		out = append(out, models.TemplateInfo{
			ID:          id,
			Name:        tmpl.Name,
			Description: tmpl.Description,
			ObjectCount: len(tmpl.Objects),
			PathCount:   len(tmpl.Paths),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateFromTemplate creates a layout from the template with id. Fields set
// in draft override the template's values. Every object and path receives a
// fresh server id.
func (s *Service) CreateFromTemplate(ctx context.Context, id string, draft models.LayoutDraft) (models.Layout, error) {
	tmpl, err := s.LoadTemplate(id)
	if err != nil {
		return models.Layout{}, err
	}

	merged := tmpl.Draft()
	if draft.Name.Set && !draft.Name.Null {
		merged.Name = draft.Name
	}
	if draft.Width.Set && !draft.Width.Null {
		merged.Width = draft.Width
	}
	if draft.Depth.Set && !draft.Depth.Null {
		merged.Depth = draft.Depth
	}
	if draft.Height.Set && !draft.Height.Null {
		merged.Height = draft.Height
	}
	if draft.GridSize.Set && !draft.GridSize.Null {
		merged.GridSize = draft.GridSize
	}

	var created models.Layout
	err = s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		created = s.newLayout(layouts, merged)
		for _, obj := range tmpl.Objects {
			created.Objects = append(created.Objects, obj.WithID(s.uniqueEntityID(created.Objects)))
		}
		for _, p := range tmpl.Paths {
			created.Paths = append(created.Paths, p.WithID(s.uniqueEntityID(created.Paths)))
		}
		return append(layouts, created), nil
	})
	if err != nil {
		return models.Layout{}, err
	}
	s.publish(models.ChangeLayoutCreated, created.ID, "")
	return created, nil
}

// LoadTemplate reads the template with id from the template directory.
func (s *Service) LoadTemplate(id string) (*models.LayoutTemplate, error) {
	if s.templateDir == "" || id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, ErrTemplateNotFound
	}
	for _, ext := range templateExts {
		path := filepath.Join(s.templateDir, id+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return s.readTemplate(path)
	}
	return nil, ErrTemplateNotFound
}

func (s *Service) readTemplate(path string) (*models.LayoutTemplate, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is inside the configured template dir
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	var tmpl models.LayoutTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalidTemplate, filepath.Base(path), err)
	}
	return &tmpl, nil
}

func templateID(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range templateExts {
		if ext == e {
			return strings.TrimSuffix(name, filepath.Ext(name)), true
		}
	}
	return "", false
}
