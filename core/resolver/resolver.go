package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by a single resolver that cannot locate an identifier
var ErrNotFound = errors.New("module not found")

// ModuleNotFoundError is returned when no resolver in a stack located an identifier
type ModuleNotFoundError struct {
	Identifier string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module %q could not be resolved", e.Identifier)
}

func (e *ModuleNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Resolver maps a module identifier to a filesystem location
type Resolver interface {
	Resolve(identifier string) (string, error)
}

// Stack tries resolvers in priority order and returns the first success
type Stack struct {
	resolvers []Resolver
}

// NewStack creates a stack; earlier arguments have higher priority
func NewStack(resolvers ...Resolver) *Stack {
	return &Stack{resolvers: append([]Resolver(nil), resolvers...)}
}

// Prepend adds r with the highest priority
func (s *Stack) Prepend(r Resolver) {
	s.resolvers = append([]Resolver{r}, s.resolvers...)
}

// Append adds r with the lowest priority
func (s *Stack) Append(r Resolver) {
	s.resolvers = append(s.resolvers, r)
}

// Len returns the number of resolvers
func (s *Stack) Len() int {
	return len(s.resolvers)
}

// Resolve returns the path from the first resolver that finds identifier.
// Resolvers answering ErrNotFound are skipped; any other error aborts.
func (s *Stack) Resolve(identifier string) (string, error) {
	for _, r := range s.resolvers {
		path, err := r.Resolve(identifier)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("resolving module %q: %w", identifier, err)
		}
	}
	return "", &ModuleNotFoundError{Identifier: identifier}
}

// SourceLocator reports where the code of a compiled in module lives
type SourceLocator interface {
	Source(identifier string) (string, bool)
}

// SourceResolver resolves modules compiled into the binary to the directory
// holding the source that defines their entry point
type SourceResolver struct {
	locator SourceLocator
}

// NewSourceResolver creates a resolver backed by locator
func NewSourceResolver(locator SourceLocator) *SourceResolver {
	return &SourceResolver{locator: locator}
}

func (r *SourceResolver) Resolve(identifier string) (string, error) {
	file, ok := r.locator.Source(identifier)
	if !ok || file == "" {
		return "", ErrNotFound
	}
	return filepath.Dir(file), nil
}

// DirectoryResolver resolves an identifier to a readable directory below a
// base path. Dots and slashes in the identifier separate path segments.
type DirectoryResolver struct {
	fs   afero.Fs
	base string
}

// NewDirectoryResolver creates a resolver rooted at base
func NewDirectoryResolver(fs afero.Fs, base string) *DirectoryResolver {
	return &DirectoryResolver{fs: fs, base: base}
}

func (r *DirectoryResolver) Resolve(identifier string) (string, error) {
	segments := Segments(identifier)
	if len(segments) == 0 {
		return "", ErrNotFound
	}

	path := filepath.Join(append([]string{r.base}, segments...)...)
	info, err := r.fs.Stat(path)
	if err != nil || !info.IsDir() {
		return "", ErrNotFound
	}

	dir, err := r.fs.Open(path)
	if err != nil {
		return "", ErrNotFound
	}
	_ = dir.Close()

	return path, nil
}

// Segments splits a module identifier into path segments. Dots double as
// separators, so parent references cannot survive the split.
func Segments(identifier string) []string {
	return strings.FieldsFunc(identifier, func(r rune) bool {
		return r == '.' || r == '/' || r == '\\'
	})
}
