package provider

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed icons.yaml
var defaultIconManifest []byte

// Icon is a single registered icon.
type Icon struct {
	Name  string `yaml:"name"`
	Theme string `yaml:"theme"`
	SVG   string `yaml:"svg"`
}

type iconManifest struct {
	Icons []Icon `yaml:"icons"`
}

// IconSet is the read-only set of icons registered at startup.
type IconSet struct {
	icons map[string]Icon
}

// LoadIcons reads an icon manifest from path, or the built-in manifest when path is empty.
func LoadIcons(path string) (IconSet, error) {
	data := defaultIconManifest
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return IconSet{}, fmt.Errorf("failed to read icon manifest: %w", err)
		}
		data = b
	}
	return ParseIcons(data)
}

// ParseIcons decodes a YAML icon manifest.
func ParseIcons(data []byte) (IconSet, error) {
	var m iconManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return IconSet{}, fmt.Errorf("failed to parse icon manifest: %w", err)
	}

	set := IconSet{icons: make(map[string]Icon, len(m.Icons))}
	for _, icon := range m.Icons {
		if icon.Name == "" {
			return IconSet{}, fmt.Errorf("icon manifest entry without a name")
		}
		if icon.SVG == "" {
			return IconSet{}, fmt.Errorf("icon %q has no svg", icon.Name)
		}
		if _, dup := set.icons[icon.Name]; dup {
			return IconSet{}, fmt.Errorf("icon %q registered twice", icon.Name)
		}
		set.icons[icon.Name] = icon
	}
	return set, nil
}

// SVG returns the markup of the named icon.
func (s IconSet) SVG(name string) (string, bool) {
	icon, ok := s.icons[name]
	return icon.SVG, ok
}

// Names returns the registered icon names in sorted order.
func (s IconSet) Names() []string {
	names := make([]string, 0, len(s.icons))
	for name := range s.icons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Require fails when any of names is not registered.
func (s IconSet) Require(names ...string) error {
	for _, name := range names {
		if _, ok := s.icons[name]; !ok {
			return fmt.Errorf("icon %q is not registered", name)
		}
	}
	return nil
}
