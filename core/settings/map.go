package settings

import (
	"go.yaml.in/yaml/v3"
)

// Map is a string keyed mapping that remembers insertion order. Settings
// such as routes depend on declaration order, so every mapping in the
// settings tree is a *Map rather than a Go map.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty ordered mapping
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// MapOf builds a Map from alternating key/value pairs. It panics on an odd
// argument count or a non string key and is meant for literals in code and tests.
func MapOf(pairs ...any) *Map {
	if len(pairs)%2 != 0 {
		panic("settings.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic("settings.MapOf: keys must be strings")
		}
		m.Set(key, pairs[i+1])
	}
	return m
}

// Set stores value under key. Existing keys keep their position.
func (m *Map) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, preserving the order of the remaining keys
func (m *Map) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of entries
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Range calls fn for each entry in insertion order until fn returns false
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy of the mapping
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := NewMap()
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.values[k]))
	}
	return out
}

// MarshalYAML encodes the mapping with its keys in order
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(m.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Merge combines two settings values recursively. Mappings are merged key by
// key with base keys keeping their position, sequences are concatenated and
// any other value in override replaces the one in base. Neither argument is
// modified.
func Merge(base, override any) any {
	switch o := override.(type) {
	case *Map:
		if o == nil {
			return cloneValue(base)
		}
		b, ok := base.(*Map)
		if !ok || b == nil {
			return o.Clone()
		}
		out := b.Clone()
		for _, k := range o.keys {
			if existing, exists := out.values[k]; exists {
				out.Set(k, Merge(existing, o.values[k]))
			} else {
				out.Set(k, cloneValue(o.values[k]))
			}
		}
		return out
	case []any:
		b, ok := base.([]any)
		if !ok {
			return cloneValue(o)
		}
		out := make([]any, 0, len(b)+len(o))
		out = append(out, cloneValue(b).([]any)...)
		out = append(out, cloneValue(o).([]any)...)
		return out
	case nil:
		return cloneValue(base)
	default:
		return override
	}
}
