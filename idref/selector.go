package idref

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Selector prefixes distinguish the two addressing modes: an item selector
// names exactly one identifier, a resource-set selector carries glob
// patterns matched component-wise.
const (
	itemPrefix     = "zri:"
	selectorPrefix = "zrs:"
)

// ErrSelectorPrefix is returned when a selector string starts with neither
// "zri:" nor "zrs:".
var ErrSelectorPrefix = errors.New(`idref: selector must start with "zri:" or "zrs:"`)

// Selector matches identifiers. A "zri:" selector matches one exact ID; a
// "zrs:" selector applies glob patterns (path.Match syntax) to each of the
// six components independently. In location patterns, '*' does not cross
// '/' boundaries, as usual for path globs.
type Selector struct {
	exact    bool
	patterns [6]string
}

// ParseSelector parses one selector string, e.g.
//
//	zri:fs:file::main:src/app.go:
//	zrs:fs:file::*:src/*:
func ParseSelector(s string) (Selector, error) {
	var exact bool
	switch {
	case strings.HasPrefix(s, itemPrefix):
		exact = true
		s = strings.TrimPrefix(s, itemPrefix)
	case strings.HasPrefix(s, selectorPrefix):
		s = strings.TrimPrefix(s, selectorPrefix)
	default:
		return Selector{}, fmt.Errorf("%w: %q", ErrSelectorPrefix, s)
	}

	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return Selector{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	sel := Selector{exact: exact}
	copy(sel.patterns[:], parts)
	if exact {
		if err := validateLocation(sel.patterns[4]); err != nil {
			return Selector{}, err
		}
	}
	return sel, nil
}

// Match reports whether id satisfies the selector.
func (sel Selector) Match(id ID) bool {
	components := [6]string{id.Provider, id.Resource, id.Variant, id.Context, id.Location, id.Fragment}
	for i, component := range components {
		if sel.exact {
			if sel.patterns[i] != component {
				return false
			}
			continue
		}
		if sel.patterns[i] == "" && component == "" {
			continue
		}
		ok, err := matchComponent(sel.patterns[i], component)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// matchComponent globs one component. Location components match
// segment-wise so that a pattern like "src/*" covers exactly one path
// level, the same containment path.Match gives.
func matchComponent(pattern, component string) (bool, error) {
	return path.Match(pattern, component)
}

// Matcher is a compiled set of selectors; an identifier matches when any
// selector does.
type Matcher struct {
	selectors []Selector
}

// Compile parses each selector string and combines them into a Matcher.
func Compile(selectors ...string) (Matcher, error) {
	m := Matcher{selectors: make([]Selector, 0, len(selectors))}
	for _, s := range selectors {
		sel, err := ParseSelector(s)
		if err != nil {
			return Matcher{}, err
		}
		m.selectors = append(m.selectors, sel)
	}
	return m, nil
}

// Match reports whether any of the matcher's selectors matches id.
func (m Matcher) Match(id ID) bool {
	for _, sel := range m.selectors {
		if sel.Match(id) {
			return true
		}
	}
	return false
}
