// Package doctemplate resolves quote document templates from a directory.
//
// Templates are plain HTML files users drop into the templates directory;
// the resolver only guards identifiers against path traversal and exposes
// listing metadata. Parsing and substitution belong to the render package.
package doctemplate

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

// Extension is the only recognized template file extension.
const Extension = ".html"

var (
	// ErrInvalidTemplateID marks ids with path separators, parent segments
	// or a missing extension.
	ErrInvalidTemplateID = fmt.Errorf("%w: invalid template id", httpx.ErrValidation)
	// ErrTemplateNotFound marks ids that pass validation but have no file.
	ErrTemplateNotFound = fmt.Errorf("%w: template", httpx.ErrNotFound)
)

//go:embed default/*.html
var defaultTemplates embed.FS

// Info describes a listed template: the display name is the file name with
// the extension stripped.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Template is the raw content handed to the renderer.
type Template struct {
	ID      string
	Content []byte
}

// Resolver maps template identifiers to files inside a single directory.
type Resolver struct {
	dir string
}

// NewResolver ensures the template directory exists and seeds the bundled
// default template when the directory is empty.
func NewResolver(dir string) (*Resolver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("doctemplate: create dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("doctemplate: read dir: %w", err)
	}
	hasTemplate := false
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), Extension) {
			hasTemplate = true
			break
		}
	}
	if !hasTemplate {
		if err := seedDefaults(dir); err != nil {
			return nil, err
		}
	}
	return &Resolver{dir: dir}, nil
}

// ValidateID rejects identifiers that could escape the template directory
// or reference anything but a template file.
func (r *Resolver) ValidateID(id string) error {
	if id == "" ||
		strings.Contains(id, "..") ||
		strings.ContainsAny(id, `/\`) ||
		!strings.HasSuffix(id, Extension) ||
		id == Extension {
		return fmt.Errorf("%w (%q)", ErrInvalidTemplateID, id)
	}
	return nil
}

// Resolve returns the raw template content for a valid identifier.
func (r *Resolver) Resolve(id string) (*Template, error) {
	if err := r.ValidateID(id); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(r.dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w %q", ErrTemplateNotFound, id)
		}
		return nil, fmt.Errorf("doctemplate: read %s: %w", id, err)
	}
	return &Template{ID: id, Content: content}, nil
}

// List enumerates every template file in the directory.
func (r *Resolver) List() ([]Info, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("doctemplate: read dir: %w", err)
	}
	out := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Extension) {
			continue
		}
		out = append(out, Info{ID: name, Name: strings.TrimSuffix(name, Extension)})
	}
	return out, nil
}

func seedDefaults(dir string) error {
	entries, err := defaultTemplates.ReadDir("default")
	if err != nil {
		return fmt.Errorf("doctemplate: read embedded defaults: %w", err)
	}
	for _, entry := range entries {
		content, err := defaultTemplates.ReadFile("default/" + entry.Name())
		if err != nil {
			return fmt.Errorf("doctemplate: read embedded %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, entry.Name()), content, 0o644); err != nil {
			return fmt.Errorf("doctemplate: seed %s: %w", entry.Name(), err)
		}
	}
	return nil
}
