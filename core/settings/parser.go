package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// Parser turns raw file contents into a settings mapping
type Parser interface {
	Parse(data []byte) (*Map, error)
}

// YAMLParser parses YAML documents. JSON is a subset of YAML, so the same
// parser handles .json files. Mapping order is preserved.
type YAMLParser struct{}

func (YAMLParser) Parse(data []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewMap(), nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return NewMap(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("settings document must be a mapping, got %s", kindName(root.Kind))
	}

	v, err := convertNode(root)
	if err != nil {
		return nil, err
	}
	return v.(*Map), nil
}

func convertNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return convertNode(node.Content[0])
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.Tag == "!!merge" {
				inherited, err := convertNode(valueNode)
				if err != nil {
					return nil, err
				}
				if im, ok := inherited.(*Map); ok {
					m = Merge(im, m).(*Map)
				}
				continue
			}
			value, err := convertNode(valueNode)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, value)
		}
		return m, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := convertNode(child)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	case yaml.AliasNode:
		return convertNode(node.Alias)
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %s", node.Line, kindName(node.Kind))
	}
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is returned for files without a registered parser
var ErrUnsupportedFormat = errors.New("unsupported settings format")

// ParserStack picks a parser by file extension
type ParserStack struct {
	parsers map[string]Parser
}

// NewParserStack creates a stack from an extension to parser mapping.
// Extensions are given without the leading dot.
func NewParserStack(parsers map[string]Parser) *ParserStack {
	ps := &ParserStack{parsers: make(map[string]Parser, len(parsers))}
	for ext, p := range parsers {
		ps.parsers[strings.ToLower(ext)] = p
	}
	return ps
}

// DefaultParserStack handles yml, yaml and json files
func DefaultParserStack() *ParserStack {
	return NewParserStack(map[string]Parser{
		"yml":  YAMLParser{},
		"yaml": YAMLParser{},
		"json": YAMLParser{},
	})
}

// Supports reports whether path has a registered extension
func (ps *ParserStack) Supports(path string) bool {
	_, ok := ps.parsers[extension(path)]
	return ok
}

// Parse parses data using the parser registered for the extension of path
func (ps *ParserStack) Parse(path string, data []byte) (*Map, error) {
	p, ok := ps.parsers[extension(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	m, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// ParseFile reads and parses a file from fs
func (ps *ParserStack) ParseFile(fs afero.Fs, path string) (*Map, error) {
	if !ps.Supports(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ps.Parse(path, data)
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
