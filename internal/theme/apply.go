package theme

import (
	"maps"
	"slices"
	"sync"
)

// CSS variable names written by Apply.
const (
	VarPrimaryHex   = "--color-primary"
	VarSecondaryHex = "--color-secondary"
	VarPrimaryHSL   = "--primary"
	VarSecondaryHSL = "--secondary"
)

var typographyClasses = map[Typography]string{
	TypographySerif:       "font-serif",
	TypographySans:        "font-sans",
	TypographyHandwritten: "font-handwritten",
}

var iconClasses = map[IconStyle]string{
	IconOutlined: "icons-outlined",
	IconFilled:   "icons-filled",
	IconDuotone:  "icons-duotone",
}

// TypographyClass returns the root class selected for t.
func TypographyClass(t Typography) string {
	return typographyClasses[t]
}

// IconClass returns the root class selected for s.
func IconClass(s IconStyle) string {
	return iconClasses[s]
}

// Surface is the presentation root a theme is applied to. The rendering
// layer reads it; only Apply writes it.
type Surface interface {
	SetVar(name, value string)
	AddClass(class string)
	RemoveClass(class string)
}

// Apply writes pref onto s. Every value is computed and validated before
// the first write, so a rejected preference leaves s untouched. Layout
// priorities are not part of the surface and are ignored here.
func Apply(s Surface, pref Preference) error {
	if err := pref.Validate(); err != nil {
		return err
	}
	primary, err := HexToHSL(pref.PrimaryColor)
	if err != nil {
		return err
	}
	secondary, err := HexToHSL(pref.SecondaryColor)
	if err != nil {
		return err
	}

	s.SetVar(VarPrimaryHex, normalizeHex(pref.PrimaryColor))
	s.SetVar(VarPrimaryHSL, primary.String())
	s.SetVar(VarSecondaryHex, normalizeHex(pref.SecondaryColor))
	s.SetVar(VarSecondaryHSL, secondary.String())

	for _, class := range typographyClasses {
		s.RemoveClass(class)
	}
	typography, _ := ParseTypography(string(pref.Typography))
	s.AddClass(typographyClasses[typography])

	for _, class := range iconClasses {
		s.RemoveClass(class)
	}
	s.AddClass(iconClasses[pref.IconStyle])
	return nil
}

// Document is the in-process presentation root: a set of CSS variables and
// root classes guarded for concurrent readers.
type Document struct {
	mu      sync.RWMutex
	vars    map[string]string
	classes map[string]struct{}
}

func NewDocument() *Document {
	return &Document{
		vars:    make(map[string]string),
		classes: make(map[string]struct{}),
	}
}

func (d *Document) SetVar(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vars[name] = value
}

func (d *Document) AddClass(class string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classes[class] = struct{}{}
}

func (d *Document) RemoveClass(class string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.classes, class)
}

// Var returns a single variable value.
func (d *Document) Var(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vars[name]
}

// Snapshot is a point-in-time copy of a Document.
type Snapshot struct {
	Vars    map[string]string
	Classes []string
}

// Snapshot copies the document state; classes are sorted.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	classes := slices.Sorted(maps.Keys(d.classes))
	return Snapshot{Vars: maps.Clone(d.vars), Classes: classes}
}
