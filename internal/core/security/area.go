// Package security provides area-scoped authorization primitives.
//
// Every stocked item, movement and lot counter belongs to exactly one area
// (laboratory or warehouse). A user's scope says which areas they may act on;
// the domain trusts this boolean capability and nothing else.
package security

import (
	"fmt"
)

// Area is the organizational scope an item or operation belongs to.
type Area string

const (
	AreaLab       Area = "Lab"
	AreaWarehouse Area = "Bod"
)

// ParseArea validates and canonicalizes an area tag.
// Accepts the URL forms ("lab", "bod") as well as the stored tags.
func ParseArea(s string) (Area, error) {
	switch s {
	case "Lab", "lab":
		return AreaLab, nil
	case "Bod", "bod", "warehouse":
		return AreaWarehouse, nil
	}
	return "", fmt.Errorf("unknown area %q", s)
}

// Valid reports whether the area is one of the closed set of tags.
func (a Area) Valid() bool {
	return a == AreaLab || a == AreaWarehouse
}

func (a Area) String() string { return string(a) }

// Scope is the set of areas a user may act on.
// Serialized in JWT claims as a list of area tags.
type Scope struct {
	areas map[Area]bool
}

// NewScope builds a scope from area tags, ignoring unknown ones.
func NewScope(areas ...Area) Scope {
	s := Scope{areas: make(map[Area]bool, len(areas))}
	for _, a := range areas {
		if a.Valid() {
			s.areas[a] = true
		}
	}
	return s
}

// ScopeFromStrings parses a claim list into a scope.
func ScopeFromStrings(tags []string) Scope {
	areas := make([]Area, 0, len(tags))
	for _, t := range tags {
		if a, err := ParseArea(t); err == nil {
			areas = append(areas, a)
		}
	}
	return NewScope(areas...)
}

// CanActOn reports whether the scope covers the given area.
func (s Scope) CanActOn(area Area) bool {
	return s.areas[area]
}

// Areas returns the covered areas as tags (stable order: Lab first).
func (s Scope) Areas() []string {
	out := make([]string, 0, len(s.areas))
	if s.areas[AreaLab] {
		out = append(out, string(AreaLab))
	}
	if s.areas[AreaWarehouse] {
		out = append(out, string(AreaWarehouse))
	}
	return out
}

// IsEmpty reports whether the scope covers no areas at all.
func (s Scope) IsEmpty() bool {
	return len(s.areas) == 0
}
