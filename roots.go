package mcphost

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
)

// StaticRoots is a fixed-set RootsListHandler. Besides answering roots/list,
// it can vet URIs against the configured roots: a URI is admitted when it
// matches a root exactly or lives underneath one. Root URIs may themselves
// contain glob wildcards.
type StaticRoots struct {
	roots []Root
	globs []glob.Glob
}

// NewStaticRoots builds a handler for the given roots. It fails when a root
// URI does not compile as a match pattern.
func NewStaticRoots(roots ...Root) (*StaticRoots, error) {
	s := &StaticRoots{
		roots: roots,
		globs: make([]glob.Glob, 0, 2*len(roots)),
	}
	for _, root := range roots {
		exact, err := glob.Compile(root.URI)
		if err != nil {
			return nil, fmt.Errorf("invalid root uri %q: %w", root.URI, err)
		}
		under, err := glob.Compile(root.URI + "/*")
		if err != nil {
			return nil, fmt.Errorf("invalid root uri %q: %w", root.URI, err)
		}
		s.globs = append(s.globs, exact, under)
	}
	return s, nil
}

// RootsList implements RootsListHandler.
func (s *StaticRoots) RootsList(_ context.Context) (RootList, error) {
	roots := make([]Root, len(s.roots))
	copy(roots, s.roots)
	return RootList{Roots: roots}, nil
}

// Allows reports whether the URI falls inside one of the configured roots.
func (s *StaticRoots) Allows(uri string) bool {
	for _, g := range s.globs {
		if g.Match(uri) {
			return true
		}
	}
	return false
}
