package testutil

import (
	"fmt"
	"path/filepath"
	"sync"
)

// PathGenerator names database files inside one directory.
//
// Names are numbered per generator, not randomised, so a scenario that
// relocates to "file" twice always produces dir/relocate-001.db and
// dir/relocate-002.db.
type PathGenerator struct {
	mu   sync.Mutex
	dir  string
	next map[string]int
}

// NewPathGenerator returns a generator rooted at dir. dir must exist.
func NewPathGenerator(dir string) *PathGenerator {
	return &PathGenerator{dir: dir, next: make(map[string]int)}
}

// Next returns the next unused path for prefix.
func (g *PathGenerator) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prefix == "" {
		prefix = "db"
	}
	g.next[prefix]++
	return filepath.Join(g.dir, fmt.Sprintf("%s-%03d.db", prefix, g.next[prefix]))
}

// Dir is the directory paths are generated in.
func (g *PathGenerator) Dir() string { return g.dir }
