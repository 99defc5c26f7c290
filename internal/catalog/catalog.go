// Package catalog loads and validates the set of candidate formats the
// evaluators select from, and establishes the decreasing-bitrate ordering
// they rely on.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/PaesslerAG/gval"
	"gopkg.in/yaml.v3"

	"github.com/shapedtime/abrkit/internal/abr"
)

// FormatSpec is the manifest representation of one format.
type FormatSpec struct {
	ID      string `yaml:"id"`
	Bitrate int    `yaml:"bitrate"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// Manifest is the on-disk format catalog.
type Manifest struct {
	Formats []FormatSpec `yaml:"formats"`
}

// Load reads a YAML manifest and returns the validated, sorted catalog.
func Load(path string) ([]*abr.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return FromSpecs(m.Formats)
}

// FromSpecs validates the specs and returns formats sorted by strictly
// decreasing bitrate, the ordering every evaluator depends on.
func FromSpecs(specs []FormatSpec) ([]*abr.Format, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]bool, len(specs))
	formats := make([]*abr.Format, 0, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("format with bitrate %d has no id", s.Bitrate)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate format id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Bitrate <= 0 {
			return nil, fmt.Errorf("format %q: bitrate must be positive, got %d", s.ID, s.Bitrate)
		}
		formats = append(formats, &abr.Format{
			ID:      s.ID,
			Bitrate: s.Bitrate,
			Width:   s.Width,
			Height:  s.Height,
		})
	}

	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].Bitrate > formats[j].Bitrate
	})

	for i := 1; i < len(formats); i++ {
		if formats[i].Bitrate == formats[i-1].Bitrate {
			return nil, fmt.Errorf("formats %q and %q share bitrate %d, ordering must be strict",
				formats[i-1].ID, formats[i].ID, formats[i].Bitrate)
		}
	}

	return formats, nil
}

// Filter returns the formats satisfying every constraint expression.
// Expressions are boolean gval expressions over br (bitrate, bits/sec),
// w (width) and h (height), e.g. "br <= 4000000 && h < 1080". When more
// than one expression is given all of them must hold. An empty expression
// list keeps the full catalog; a filter that excludes every format is an
// error, since evaluators require a non-empty candidate set.
func Filter(formats []*abr.Format, exprs []string) ([]*abr.Format, error) {
	if len(exprs) == 0 {
		return formats, nil
	}

	kept := make([]*abr.Format, 0, len(formats))
	for _, f := range formats {
		vars := map[string]interface{}{
			"br": f.Bitrate,
			"w":  f.Width,
			"h":  f.Height,
		}
		match := true
		for _, expr := range exprs {
			value, err := gval.Evaluate(expr, vars)
			if err != nil {
				return nil, fmt.Errorf("constraint %q: %w", expr, err)
			}
			ok, isBool := value.(bool)
			if !isBool {
				return nil, fmt.Errorf("constraint %q: not a boolean expression", expr)
			}
			if !ok {
				match = false
				break
			}
		}
		if match {
			kept = append(kept, f)
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("constraints exclude every format in the catalog")
	}
	return kept, nil
}
