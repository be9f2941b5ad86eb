// Package dialects provides controller-specific renderings of tone programs
package dialects

import (
	"fmt"
	"sort"
	"strings"

	"github.com/james-see/midi2gcode/pkg/converter"
)

// Default is the dialect used when none is named
const Default = "marlin"

var registry = map[string]func() converter.Dialect{
	"marlin":   func() converter.Dialect { return NewMarlin() },
	"gcode":    func() converter.Dialect { return NewMarlin() },
	"mikrotik": func() converter.Dialect { return NewMikroTik() },
	"routeros": func() converter.Dialect { return NewMikroTik() },
}

// Get returns the dialect registered under name
func Get(name string) (converter.Dialect, error) {
	if name == "" {
		name = Default
	}
	mk, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", converter.ErrUnknownDialect, name)
	}
	return mk(), nil
}

// Names returns the canonical dialect names
func Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, mk := range registry {
		n := mk().Name()
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
