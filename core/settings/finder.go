package settings

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Finder lists the settings files an application should load: every
// supported file inside the autoload directories, sorted by name per
// directory, followed by the explicitly configured files.
type Finder struct {
	fs       afero.Fs
	autoload []string
	files    []string
	parsers  *ParserStack
}

// NewFinder creates a finder over fs
func NewFinder(fs afero.Fs, parsers *ParserStack, autoload, files []string) *Finder {
	return &Finder{
		fs:       fs,
		autoload: autoload,
		files:    files,
		parsers:  parsers,
	}
}

// FindFiles returns candidate paths. Missing autoload directories are
// ignored. Explicit files are returned as given so callers can report the
// ones that cannot be read.
func (f *Finder) FindFiles() ([]string, error) {
	var found []string
	for _, dir := range f.autoload {
		entries, err := afero.ReadDir(f.fs, dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !f.parsers.Supports(entry.Name()) {
				continue
			}
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}
	return append(found, f.files...), nil
}

// Readable reports whether path can be opened for reading on fs
func Readable(fs afero.Fs, path string) bool {
	file, err := fs.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
