package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/edp1096/spicelib/pkg/netlist"
)

// DefaultExtensions are the file extensions scanned under a library root.
var DefaultExtensions = []string{".lib", ".sub", ".subckt", ".inc", ".cir", ".mod"}

// Duplicate records a name defined more than once. The later definition wins.
type Duplicate struct {
	Name     string `json:"name" yaml:"name"`
	Kept     string `json:"kept" yaml:"kept"`         // source of the definition now active
	Replaced string `json:"replaced" yaml:"replaced"` // source of the overwritten definition
}

// Problem is a broken block skipped while indexing a file.
type Problem struct {
	Source string
	Err    *netlist.LineError
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.Source, p.Err)
}

// Snapshot is one fully built generation of the catalog. It is never
// mutated after publication.
type Snapshot struct {
	Generation uint64
	Roots      []string
	IndexedAt  time.Time
	Duplicates []Duplicate
	Problems   []Problem

	entries map[string]*Definition
	keys    []string // sorted
}

func emptySnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string]*Definition)}
}

// Lookup is a case-insensitive exact match.
func (s *Snapshot) Lookup(name string) (*Definition, bool) {
	def, ok := s.entries[Key(name)]
	return def, ok
}

// Search returns definitions whose name or metadata contains query,
// case-insensitively, sorted by name. limit <= 0 means no cap.
func (s *Snapshot) Search(query string, limit int) []*Definition {
	q := fold(strings.TrimSpace(query))
	var found []*Definition
	for _, key := range s.keys {
		def := s.entries[key]
		if !def.matches(q) {
			continue
		}
		found = append(found, def)
		if limit > 0 && len(found) >= limit {
			break
		}
	}
	return found
}

func (s *Snapshot) Len() int { return len(s.entries) }

// Definitions returns every definition sorted by name.
func (s *Snapshot) Definitions() []*Definition {
	defs := make([]*Definition, 0, len(s.keys))
	for _, key := range s.keys {
		defs = append(defs, s.entries[key])
	}
	return defs
}

// Catalog makes subcircuit definitions addressable by name. Readers work on
// the published snapshot; Reindex builds a new one aside and swaps it in.
type Catalog struct {
	current    atomic.Pointer[Snapshot]
	mu         sync.Mutex // serializes Reindex
	extensions []string
	logger     *zap.Logger
}

type Option func(*Catalog)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

func WithExtensions(exts []string) Option {
	return func(c *Catalog) {
		c.extensions = nil
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			c.extensions = append(c.extensions, ext)
		}
	}
}

// New returns an empty catalog at generation 0.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		extensions: DefaultExtensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(emptySnapshot())
	return c
}

// Index builds a catalog from the given roots.
func Index(ctx context.Context, roots []string, opts ...Option) (*Catalog, error) {
	c := New(opts...)
	if err := c.Reindex(ctx, roots); err != nil {
		return nil, err
	}
	return c, nil
}

// Reindex rebuilds the whole map from roots and publishes it atomically.
// On error the previous snapshot stays active. Derived stores built from an
// older generation must be re-synchronized by the caller.
func (c *Catalog) Reindex(ctx context.Context, roots []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	snap, err := c.build(ctx, roots, prev.Generation+1)
	if err != nil {
		c.logger.Warn("library reindex failed, keeping previous generation",
			zap.Uint64("generation", prev.Generation),
			zap.Error(err))
		return err
	}

	c.current.Store(snap)
	c.logger.Info("library indexed",
		zap.Uint64("generation", snap.Generation),
		zap.Int("definitions", snap.Len()),
		zap.Int("duplicates", len(snap.Duplicates)),
		zap.Int("problems", len(snap.Problems)))
	return nil
}

func (c *Catalog) build(ctx context.Context, roots []string, generation uint64) (*Snapshot, error) {
	snap := emptySnapshot()
	snap.Generation = generation
	snap.Roots = append([]string(nil), roots...)

	files, err := c.collectFiles(roots)
	if err != nil {
		return nil, err
	}

	var readErrs error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			readErrs = multierr.Append(readErrs, fmt.Errorf("reading library %s: %w", path, err))
			continue
		}

		defs, problems := ParseFile(string(content), path)
		for _, p := range problems {
			snap.Problems = append(snap.Problems, Problem{Source: path, Err: p})
			c.logger.Warn("skipping broken subcircuit block", zap.String("file", path), zap.Error(p))
		}

		for _, def := range defs {
			key := def.Key()
			if old, exists := snap.entries[key]; exists {
				snap.Duplicates = append(snap.Duplicates, Duplicate{Name: def.Name, Kept: def.Source, Replaced: old.Source})
				c.logger.Warn("duplicate subcircuit name, last definition wins",
					zap.String("name", def.Name),
					zap.String("kept", def.Source),
					zap.String("replaced", old.Source))
			}
			snap.entries[key] = def
		}
	}
	if readErrs != nil {
		return nil, readErrs
	}

	snap.keys = make([]string, 0, len(snap.entries))
	for key := range snap.entries {
		snap.keys = append(snap.keys, key)
	}
	sort.Strings(snap.keys)
	snap.IndexedAt = time.Now()

	return snap, nil
}

// collectFiles lists library files in discovery order: roots in the given
// order, files within a root in lexical order.
func (c *Catalog) collectFiles(roots []string) ([]string, error) {
	var (
		files []string
		errs  error
	)

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("library root %s: %w", root, err))
			continue
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !c.hasLibraryExt(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("scanning library root %s: %w", root, err))
		}
	}

	return files, errs
}

func (c *Catalog) hasLibraryExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Snapshot returns the active generation.
func (c *Catalog) Snapshot() *Snapshot { return c.current.Load() }

func (c *Catalog) Generation() uint64 { return c.current.Load().Generation }

func (c *Catalog) Len() int { return c.current.Load().Len() }

func (c *Catalog) Roots() []string { return c.current.Load().Roots }

func (c *Catalog) Lookup(name string) (*Definition, bool) {
	return c.current.Load().Lookup(name)
}

func (c *Catalog) Search(query string, limit int) []*Definition {
	return c.current.Load().Search(query, limit)
}
