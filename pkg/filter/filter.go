package filter

import "github.com/gobwas/glob"

type Filter interface {
	Match(string) bool
}

// Compile builds a filter out of glob patterns. An empty pattern list
// compiles to nil, callers treat a nil filter as match-nothing.
func Compile(patterns []string) (Filter, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return &globFilter{globs: globs}, nil
}

type globFilter struct {
	globs []glob.Glob
}

func (f *globFilter) Match(s string) bool {
	for _, g := range f.globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
