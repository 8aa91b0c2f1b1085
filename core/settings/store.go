package settings

import (
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Store is the application settings tree
type Store struct {
	root *Map
}

// NewStore creates a store seeded with a copy of initial
func NewStore(initial *Map) *Store {
	if initial == nil {
		initial = NewMap()
	}
	return &Store{root: initial.Clone()}
}

// Merge merges m over the current settings. Values in m win.
func (s *Store) Merge(m *Map) {
	if m == nil {
		return
	}
	s.root = Merge(s.root, m).(*Map)
}

// MergeDefaults merges m under the current settings. Existing values win
// while sequences from m are placed before the existing items.
func (s *Store) MergeDefaults(m *Map) {
	if m == nil {
		return
	}
	s.root = Merge(m, s.root).(*Map)
}

// Set replaces a top level key
func (s *Store) Set(key string, value any) {
	s.root.Set(key, value)
}

// Get walks the settings tree along path
func (s *Store) Get(path ...string) (any, bool) {
	var current any = s.root
	for _, key := range path {
		m, ok := current.(*Map)
		if !ok {
			return nil, false
		}
		if current, ok = m.Get(key); !ok {
			return nil, false
		}
	}
	return current, true
}

// Map returns the mapping at path or nil when absent or not a mapping
func (s *Store) Map(path ...string) *Map {
	v, ok := s.Get(path...)
	if !ok {
		return nil
	}
	m, _ := v.(*Map)
	return m
}

// String returns the string at path
func (s *Store) String(path ...string) string {
	v, _ := s.Get(path...)
	str, _ := v.(string)
	return str
}

// Strings returns the sequence at path as strings, skipping non string items.
// A single string value is treated as a one item sequence.
func (s *Store) Strings(path ...string) []string {
	v, ok := s.Get(path...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Decode copies the subtree at path into out using its yaml tags. A missing
// path leaves out untouched.
func (s *Store) Decode(out any, path ...string) error {
	v, ok := s.Get(path...)
	if !ok {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings %v: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode settings %v: %w", path, err)
	}
	return nil
}
