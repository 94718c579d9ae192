package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
)

// Override file names looked up inside the overrides directory, in
// priority order.
const (
	OverridesTOML = "themes.toml"
	OverridesINI  = "themes.ini"
)

// Environment variables applied on top of every resolved preference.
const (
	EnvPrimary    = "SEGMENT_SWITCH_PRIMARY"
	EnvSecondary  = "SEGMENT_SWITCH_SECONDARY"
	EnvTypography = "SEGMENT_SWITCH_TYPOGRAPHY"
)

// Override is a partial preference; empty fields keep the base value.
type Override struct {
	PrimaryColor     string   `toml:"primary_color"`
	SecondaryColor   string   `toml:"secondary_color"`
	Typography       string   `toml:"typography"`
	IconStyle        string   `toml:"icon_style"`
	LayoutPriorities []string `toml:"layout_priorities"`
}

// Overrides maps a segment id to the user's override for it.
type Overrides map[string]Override

// LoadOverrides reads the first override file found in dir. Missing files
// are not an error and yield no overrides.
func LoadOverrides(dir string) (Overrides, error) {
	if strings.TrimSpace(dir) == "" {
		return Overrides{}, nil
	}

	if o, ok, err := parseOverridesTOML(filepath.Join(dir, OverridesTOML)); ok || err != nil {
		return o, err
	}
	if o, ok, err := parseOverridesINI(filepath.Join(dir, OverridesINI)); ok || err != nil {
		return o, err
	}
	return Overrides{}, nil
}

func parseOverridesTOML(path string) (Overrides, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read theme overrides %q: %w", path, err)
	}

	var out Overrides
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("parse theme overrides %q: %w", path, err)
	}
	if out == nil {
		out = Overrides{}
	}
	return out, true, nil
}

func parseOverridesINI(path string) (Overrides, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	// Colors start with '#', so inline comments must stay off.
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, false, fmt.Errorf("parse theme overrides %q: %w", path, err)
	}

	out := Overrides{}
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		o := Override{
			PrimaryColor:   sec.Key("primary_color").String(),
			SecondaryColor: sec.Key("secondary_color").String(),
			Typography:     sec.Key("typography").String(),
			IconStyle:      sec.Key("icon_style").String(),
		}
		if sec.HasKey("layout_priorities") {
			o.LayoutPriorities = sec.Key("layout_priorities").Strings(",")
		}
		out[sec.Name()] = o
	}
	return out, true, nil
}

// Resolve layers the override for segment and then the environment onto
// base. Invalid override fields are dropped in favour of the base value and
// reported through the returned error; the preference is always usable.
func (o Overrides) Resolve(segment string, base Preference) (Preference, error) {
	out := base.Clone()
	var errs []error

	if ov, ok := o[segment]; ok {
		errs = append(errs, applyOverride(&out, ov)...)
	}
	errs = append(errs, applyOverride(&out, envOverride())...)

	out.LayoutPriorities = DedupeLayoutPriorities(out.LayoutPriorities)
	return out, errors.Join(errs...)
}

func applyOverride(p *Preference, ov Override) []error {
	var errs []error
	if v := normalizeHex(ov.PrimaryColor); v != "" {
		if _, err := HexToHSL(v); err != nil {
			errs = append(errs, fmt.Errorf("primary_color: %w", err))
		} else {
			p.PrimaryColor = v
		}
	}
	if v := normalizeHex(ov.SecondaryColor); v != "" {
		if _, err := HexToHSL(v); err != nil {
			errs = append(errs, fmt.Errorf("secondary_color: %w", err))
		} else {
			p.SecondaryColor = v
		}
	}
	if v := strings.TrimSpace(ov.Typography); v != "" {
		if t, err := ParseTypography(v); err != nil {
			errs = append(errs, err)
		} else {
			p.Typography = t
		}
	}
	if v := strings.TrimSpace(ov.IconStyle); v != "" {
		if s, err := ParseIconStyle(v); err != nil {
			errs = append(errs, err)
		} else {
			p.IconStyle = s
		}
	}
	if len(ov.LayoutPriorities) > 0 {
		trimmed := make([]string, 0, len(ov.LayoutPriorities))
		for _, item := range ov.LayoutPriorities {
			trimmed = append(trimmed, strings.TrimSpace(item))
		}
		p.LayoutPriorities = trimmed
	}
	return errs
}

func envOverride() Override {
	return Override{
		PrimaryColor:   os.Getenv(EnvPrimary),
		SecondaryColor: os.Getenv(EnvSecondary),
		Typography:     os.Getenv(EnvTypography),
	}
}
