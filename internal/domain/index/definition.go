package index

import (
	"fmt"
	"maps"
	"sort"
)

// Definition is the body used to create a concrete index: settings plus mappings.
type Definition struct {
	Settings map[string]any `json:"settings,omitempty" yaml:"settings"`
	Mappings map[string]any `json:"mappings,omitempty" yaml:"mappings"`
}

// Properties returns mappings.properties, or nil when the mapping declares none.
func (d Definition) Properties() map[string]any {
	props, _ := d.Mappings["properties"].(map[string]any)
	return props
}

// Fields returns the set of top-level field names declared by the mapping.
func (d Definition) Fields() map[string]struct{} {
	props := d.Properties()
	fields := make(map[string]struct{}, len(props))
	for name := range props {
		fields[name] = struct{}{}
	}
	return fields
}

// FieldNames returns the declared field names sorted.
func (d Definition) FieldNames() []string {
	names := make([]string, 0, len(d.Properties()))
	for name := range d.Properties() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithSettings returns a copy whose settings are global overlaid by the definition's own.
// Nested objects are merged key by key.
func (d Definition) WithSettings(global map[string]any) Definition {
	merged := mergeSettings(global, d.Settings)
	if len(merged) == 0 {
		merged = nil
	}
	return Definition{Settings: merged, Mappings: d.Mappings}
}

func mergeSettings(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	maps.Copy(out, base)
	for k, v := range over {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = mergeSettings(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

// Validate checks the shape of mappings.properties.
func (d Definition) Validate() error {
	raw, ok := d.Mappings["properties"]
	if !ok {
		return nil
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("mappings.properties must be an object, got %T", raw)
	}
	for name, p := range props {
		if name == "" {
			return fmt.Errorf("mappings.properties has an empty field name")
		}
		if _, ok := p.(map[string]any); !ok {
			return fmt.Errorf("mappings.properties.%s must be an object, got %T", name, p)
		}
	}
	return nil
}

// Prune returns a copy of source without the attributes the definition does not declare.
// A definition with no properties keeps everything.
func Prune(source map[string]any, fields map[string]struct{}) map[string]any {
	if len(fields) == 0 {
		return maps.Clone(source)
	}
	out := make(map[string]any, len(source))
	for k, v := range source {
		if _, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}
