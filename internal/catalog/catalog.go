// Package catalog is the compiled-in table of business segments. Each
// segment carries its display name, default visual preference and the
// ordered list of dashboard modules it exposes.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/litescript/ls-segment-switch/internal/theme"
)

// SegmentID identifies a business segment (industry vertical).
type SegmentID string

// ModuleCode identifies a dashboard module.
type ModuleCode string

// DefaultSegment is used when nothing has been persisted yet or the
// persisted value cannot be trusted.
const DefaultSegment SegmentID = "generic"

// ErrUnknownSegment matches any UnknownSegmentError via errors.Is.
var ErrUnknownSegment = errors.New("unknown segment")

// UnknownSegmentError reports an id outside the compiled-in set.
type UnknownSegmentError struct {
	ID SegmentID
}

func (e *UnknownSegmentError) Error() string {
	return fmt.Sprintf("unknown segment %q", string(e.ID))
}

func (e *UnknownSegmentError) Is(target error) bool {
	return target == ErrUnknownSegment
}

// Definition is the immutable description of a segment.
type Definition struct {
	ID           SegmentID
	DisplayName  string
	DefaultTheme theme.Preference
	Modules      []ModuleCode
}

func (d Definition) clone() Definition {
	out := d
	out.DefaultTheme = d.DefaultTheme.Clone()
	out.Modules = slices.Clone(d.Modules)
	return out
}

type table struct {
	order []Definition
	index map[SegmentID]int
}

var segments = mustBuild(builtin)

func mustBuild(defs []Definition) table {
	t := table{index: make(map[SegmentID]int, len(defs))}
	for _, def := range defs {
		if _, dup := t.index[def.ID]; dup {
			panic(fmt.Sprintf("catalog: duplicate segment %q", def.ID))
		}
		if err := def.DefaultTheme.Validate(); err != nil {
			panic(fmt.Sprintf("catalog: segment %q: %v", def.ID, err))
		}
		seen := make(map[ModuleCode]struct{}, len(def.Modules))
		for _, m := range def.Modules {
			if _, dup := seen[m]; dup {
				panic(fmt.Sprintf("catalog: segment %q lists module %q twice", def.ID, m))
			}
			seen[m] = struct{}{}
		}
		def.DefaultTheme = def.DefaultTheme.Normalized()
		t.index[def.ID] = len(t.order)
		t.order = append(t.order, def)
	}
	if _, ok := t.index[DefaultSegment]; !ok {
		panic("catalog: default segment missing")
	}
	return t
}

// DefinitionOf returns a copy of the definition for id.
func DefinitionOf(id SegmentID) (Definition, error) {
	idx, ok := segments.index[id]
	if !ok {
		return Definition{}, &UnknownSegmentError{ID: id}
	}
	return segments.order[idx].clone(), nil
}

// Contains reports whether id is a known segment.
func Contains(id SegmentID) bool {
	_, ok := segments.index[id]
	return ok
}

// All returns every definition in display order.
func All() []Definition {
	out := make([]Definition, len(segments.order))
	for i, def := range segments.order {
		out[i] = def.clone()
	}
	return out
}

// IDs returns every segment id in display order.
func IDs() []SegmentID {
	ids := make([]SegmentID, len(segments.order))
	for i, def := range segments.order {
		ids[i] = def.ID
	}
	return ids
}

// ModulesFor returns the module list of id.
func ModulesFor(id SegmentID) ([]ModuleCode, error) {
	def, err := DefinitionOf(id)
	if err != nil {
		return nil, err
	}
	return def.Modules, nil
}

// Parse normalises user input ("E-Commerce ", "agro") into a known id.
func Parse(raw string) (SegmentID, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.NewReplacer("-", "", "_", "", " ", "").Replace(id)
	if !Contains(SegmentID(id)) {
		return "", &UnknownSegmentError{ID: SegmentID(strings.TrimSpace(raw))}
	}
	return SegmentID(id), nil
}

// ArrangeModules orders mods for display: modules named in priorities come
// first in priority order, the rest keep their catalog order. Priorities
// that name no module are ignored.
func ArrangeModules(mods []ModuleCode, priorities []string) []ModuleCode {
	out := make([]ModuleCode, 0, len(mods))
	placed := make(map[ModuleCode]bool, len(mods))
	for _, p := range priorities {
		m := ModuleCode(p)
		if placed[m] || !slices.Contains(mods, m) {
			continue
		}
		placed[m] = true
		out = append(out, m)
	}
	for _, m := range mods {
		if !placed[m] {
			out = append(out, m)
		}
	}
	return out
}
