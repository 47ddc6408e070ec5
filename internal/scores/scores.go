// Package scores loads a directory of .gen example scores.
package scores

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cbegin/gen-go/internal/gen"
)

const Ext = ".gen"

//go:embed examples/*.gen
var examples embed.FS

// Score is one example score. Name is the file name without extension.
type Score struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Composer string `json:"composer,omitempty"`
	Source   string `json:"-"`
}

type Library struct {
	mu     sync.RWMutex
	scores map[string]Score
}

// Examples returns the built-in example scores.
func Examples() *Library {
	sub, err := fs.Sub(examples, "examples")
	if err != nil {
		panic(err)
	}
	lib, err := LoadFS(sub)
	if err != nil {
		panic(err)
	}
	return lib
}

// Load reads every .gen file directly inside dir.
func Load(dir string) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scores dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scores dir: %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

func LoadFS(fsys fs.FS) (*Library, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	lib := &Library{scores: map[string]Score{}}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != Ext {
			continue
		}
		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		lib.Put(strings.TrimSuffix(e.Name(), Ext), string(raw))
	}
	return lib, nil
}

// Put adds or replaces a score. Title and composer come from its metadata
// block; a missing or malformed block leaves the name as the title.
func (l *Library) Put(name, src string) {
	s := Score{Name: name, Title: name, Source: src}
	if block, ok := gen.ExtractMetadata(src); ok {
		if md, err := gen.DecodeMetadata(block); err == nil {
			if md.Title != "" {
				s.Title = md.Title
			}
			s.Composer = md.Composer
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores[name] = s
}

func (l *Library) Get(name string) (Score, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.scores[name]
	return s, ok
}

// Names returns score names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := maps.Keys(l.scores)
	slices.Sort(names)
	return names
}

// List returns every score ordered by name.
func (l *Library) List() []Score {
	names := l.Names()
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Score, 0, len(names))
	for _, n := range names {
		out = append(out, l.scores[n])
	}
	return out
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.scores)
}
