// Package aliases maps team names to the other names a feed may use for them.
//
// The book is a YAML mapping of canonical name to aliases:
//
//	Manchester United:
//	  - Man Utd
//	  - Man United
//	Paris Saint-Germain: [PSG, Paris SG]
//
// A file ending in .toml is read as TOML with the same shape:
//
//	"Paris Saint-Germain" = ["PSG", "Paris SG"]
//
// Lookups go through similarity.Normalize with symbol clearing, so case,
// punctuation and spacing differences between feeds do not matter.
package aliases

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"team-matcher/pkg/logging"
	"team-matcher/pkg/similarity"
)

// DefaultFileName is looked up in the working directory when no path is configured.
const DefaultFileName = "aliases.yaml"

// Book resolves team names to alias groups. It is safe for concurrent use.
type Book struct {
	mu       sync.RWMutex
	groups   [][]string     // canonical first, then aliases
	index    map[string]int // normalized name -> group
	loaded   bool
	yamlPath string
}

// New returns an empty book; Variants then yields only the name itself.
func New() *Book {
	return &Book{index: make(map[string]int)}
}

// FromMap builds a book from canonical -> aliases, as parsed from YAML.
func FromMap(m map[string][]string) *Book {
	b := New()
	b.set(m)
	return b
}

// Open loads the book from path, or from ./aliases.yaml when path is empty.
// A missing or broken file is logged and leaves the book empty but usable.
func Open(path string, logger *logging.Logger) *Book {
	log := logger.WithComponent("aliases")
	b := New()
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			log.Warn("Cannot determine working directory", logging.Error(err))
			return b
		}
		path = filepath.Join(cwd, DefaultFileName)
	}
	b.yamlPath = path
	if err := b.Reload(); err != nil {
		log.Warn("Alias book not loaded, matching on raw names",
			logging.String("path", path), logging.Error(err))
		return b
	}
	log.Info("Loaded alias book", logging.String("path", path), logging.Int("entries", b.Len()))
	return b
}

// Reload re-reads the YAML file the book was opened from. On error the
// previous contents stay in place.
func (b *Book) Reload() error {
	b.mu.RLock()
	path := b.yamlPath
	b.mu.RUnlock()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := parse(path, data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	b.set(m)
	return nil
}

// parse decodes the book as TOML for a .toml file and as YAML otherwise.
func parse(path string, data []byte) (map[string][]string, error) {
	var m map[string][]string
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetPath points the book at a different file; the next Reload reads it.
func (b *Book) SetPath(path string) {
	b.mu.Lock()
	b.yamlPath = path
	b.mu.Unlock()
}

// set indexes m. Canonicals are visited in sorted order and the first group
// to claim a normalized name keeps it, so a conflicting book resolves the same
// way on every load.
func (b *Book) set(m map[string][]string) {
	groups := make([][]string, 0, len(m))
	index := make(map[string]int, len(m)*2)
	claim := func(name string, g int) {
		k := key(name)
		if k == "" {
			return
		}
		if _, taken := index[k]; !taken {
			index[k] = g
		}
	}
	for _, canonical := range slices.Sorted(maps.Keys(m)) {
		g := len(groups)
		group := []string{canonical}
		claim(canonical, g)
		for _, a := range m[canonical] {
			if key(a) == "" {
				continue
			}
			claim(a, g)
			group = append(group, a)
		}
		groups = append(groups, group)
	}

	b.mu.Lock()
	b.groups = groups
	b.index = index
	b.loaded = true
	b.mu.Unlock()
}

func key(name string) string {
	return similarity.Normalize(name, true)
}

// Variants returns name followed by every other name in its alias group.
// Unknown names yield just name.
func (b *Book) Variants(name string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	g, ok := b.index[key(name)]
	if !ok {
		return []string{name}
	}
	out := make([]string, 0, len(b.groups[g])+1)
	out = append(out, name)
	self := key(name)
	for _, v := range b.groups[g] {
		if key(v) != self {
			out = append(out, v)
		}
	}
	return out
}

// Canonical returns the canonical name for name, or name when it is unknown.
func (b *Book) Canonical(name string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if g, ok := b.index[key(name)]; ok {
		return b.groups[g][0]
	}
	return name
}

// IsLoaded reports whether a file was read successfully.
func (b *Book) IsLoaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Len returns the number of canonical names.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups)
}
