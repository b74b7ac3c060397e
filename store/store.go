// Package store persists screenshot artifacts in a flat directory.
//
// The filename is the sole identifier; there is no side index — the
// directory listing is authoritative. Names are generated to be unique
// across concurrent captures, so writers never collide and deletes are
// idempotent, which keeps the whole store lock-free.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Artifact describes one stored screenshot. Artifacts are immutable once
// written: CreatedAt and ModifiedAt only differ if something outside the
// store touched the file.
type Artifact struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Stats aggregates the store contents.
type Stats struct {
	TotalCount int         `json:"total_count"`
	TotalBytes int64       `json:"total_bytes"`
	Directory  string      `json:"directory"`
	Images     []*Artifact `json:"images,omitempty"`
}

// Config configures a Manager.
type Config struct {
	// Dir is the artifact directory. Created on demand.
	Dir string

	// MaxFileBytes is the per-file validation ceiling. Default: 10 MiB.
	MaxFileBytes int64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = 10 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager is the filesystem-backed artifact store.
type Manager struct {
	cfg Config
	now func() time.Time
}

// NewManager creates a Manager over cfg.Dir.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg, now: time.Now}
}

// Dir returns the artifact directory.
func (m *Manager) Dir() string {
	return m.cfg.Dir
}

// Save writes data under name and returns the resulting artifact metadata.
// An empty name is defaulted via GenerateName with no source context.
func (m *Manager) Save(data []byte, name string) (*Artifact, error) {
	if name == "" {
		name = m.GenerateName("", "")
	}
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", m.cfg.Dir, err)
	}

	path := filepath.Join(m.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store: write %s: %w", name, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("store: stat after write %s: %w", name, err)
	}
	return artifactFromInfo(name, info), nil
}

// Info returns metadata for one artifact, or ErrNotFound.
func (m *Manager) Info(name string) (*Artifact, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	info, err := os.Stat(filepath.Join(m.cfg.Dir, name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: stat %s: %w", name, err)
	}
	return artifactFromInfo(name, info), nil
}

// Path returns the on-disk path for a valid artifact name.
func (m *Manager) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(m.cfg.Dir, name), nil
}

// List enumerates artifacts matching the extension filter, sorted by name.
// The millisecond timestamp embedded in generated names makes the name
// order roughly chronological, and it is the stable tie-break for eviction.
func (m *Manager) List() ([]*Artifact, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read dir %s: %w", m.cfg.Dir, err)
	}

	var result []*Artifact
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Raced with a concurrent delete; skip.
			m.cfg.Logger.Debug("store: stat during list", "name", e.Name(), "error", err)
			continue
		}
		result = append(result, artifactFromInfo(e.Name(), info))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes an artifact. Idempotent: returns false with no error when
// the artifact is already absent. An error means an unexpected I/O failure.
func (m *Manager) Delete(name string) (bool, error) {
	if !ValidName(name) {
		return false, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	err := os.Remove(filepath.Join(m.cfg.Dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: delete %s: %w", name, err)
	}
	return true, nil
}

// Stats aggregates artifact count and bytes. With includeDetails the full
// artifact list is attached.
func (m *Manager) Stats(includeDetails bool) (*Stats, error) {
	list, err := m.List()
	if err != nil {
		return nil, err
	}
	s := &Stats{TotalCount: len(list), Directory: m.cfg.Dir}
	for _, a := range list {
		s.TotalBytes += a.Size
	}
	if includeDetails {
		s.Images = list
	}
	return s, nil
}

func artifactFromInfo(name string, info os.FileInfo) *Artifact {
	// Birth time is not portably available; artifacts are never rewritten,
	// so mtime is the creation time.
	return &Artifact{
		Name:       name,
		Size:       info.Size(),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}
}
