// Package template persists named deployment-settings snapshots to a local
// file. The whole document is rewritten on every save or delete.
package template

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

var (
	ErrStore    = errors.New("template store error")
	ErrNotFound = errors.New("template not found")
)

// Template is a named deployment-settings snapshot.
type Template struct {
	Settings    model.DeploymentSettings `yaml:"settings"`
	Description string                   `yaml:"description,omitempty"`
	Notes       string                   `yaml:"notes,omitempty"`
	CreatedAt   time.Time                `yaml:"created_at"`
}

// document is the single persisted file shape.
type document struct {
	Templates map[string]Template `yaml:"templates"`
}

// Store owns the template document at a fixed path. Loaded at open,
// rewritten wholesale on every mutation.
type Store struct {
	path string
	doc  document
}

// Open loads the template document; a missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc:  document{Templates: map[string]Template{}},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}

		return nil, errors.Wrap(ErrStore, err.Error())
	}

	if err := yaml.Unmarshal(raw, &s.doc); err != nil {
		return nil, errors.Wrap(ErrStore, err.Error())
	}

	if s.doc.Templates == nil {
		s.doc.Templates = map[string]Template{}
	}

	return s, nil
}

// Save stores the template under name, stamping CreatedAt when unset.
func (s *Store) Save(name string, tmpl Template) error {
	if err := tmpl.Settings.Validate(); err != nil {
		return err
	}

	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = time.Now()
	}

	s.doc.Templates[name] = tmpl

	return s.rewrite()
}

// Delete removes the named template.
func (s *Store) Delete(name string) error {
	if _, ok := s.doc.Templates[name]; !ok {
		return errors.Wrap(ErrNotFound, name)
	}

	delete(s.doc.Templates, name)

	return s.rewrite()
}

// Get returns the named template.
func (s *Store) Get(name string) (Template, error) {
	tmpl, ok := s.doc.Templates[name]
	if !ok {
		return Template{}, errors.Wrap(ErrNotFound, name)
	}

	return tmpl, nil
}

// Names returns the stored template names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.doc.Templates))

	for name := range s.doc.Templates {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// rewrite writes the whole document through a temp file rename so a crashed
// write never truncates the store.
func (s *Store) rewrite() error {
	raw, err := yaml.Marshal(s.doc)
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(ErrStore, err.Error())
		}
	}

	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}

	return nil
}
