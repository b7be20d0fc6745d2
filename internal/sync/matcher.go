package sync

import (
	"fmt"

	"github.com/gobwas/glob"
)

// matcher selects source paths with include and exclude globs. Paths are
// slash separated and relative to the source root; "*" stays within one
// directory and "**" spans any number of them.
type matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

func newMatcher(include, exclude []string) (*matcher, error) {
	m := &matcher{}
	var err error
	if m.include, err = compileGlobs(include); err != nil {
		return nil, err
	}
	if m.exclude, err = compileGlobs(exclude); err != nil {
		return nil, err
	}
	return m, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// match reports whether p is selected. An empty include list selects every
// path; exclusions win over inclusions.
func (m *matcher) match(p string) bool {
	for _, g := range m.exclude {
		if g.Match(p) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, g := range m.include {
		if g.Match(p) {
			return true
		}
	}
	return false
}
