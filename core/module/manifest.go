package module

import (
	"fmt"
	"os"
	"path/filepath"

	"junction/core/settings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
)

// ManifestNames are the files checked, in order, for a module's own settings
var ManifestNames = []string{"module.yml", "module.yaml", "module.json"}

// Manifest is the settings file shipped inside a module directory
type Manifest struct {
	// Path of the manifest file
	Path string
	// Modules the module depends on, loaded before it
	Modules []string `yaml:"modules" validate:"dive,required"`
	// Settings merged into the application as defaults
	Settings *settings.Map `yaml:"-"`
}

// ReadManifest looks for a manifest in dir. A directory without one yields
// a nil manifest and no error.
func ReadManifest(fs afero.Fs, parsers *settings.ParserStack, dir string) (*Manifest, error) {
	for _, name := range ManifestNames {
		path := filepath.Join(dir, name)
		if _, err := fs.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		m, err := parsers.ParseFile(fs, path)
		if err != nil {
			return nil, err
		}

		manifest := &Manifest{Path: path}
		if err := decodeModules(m, manifest); err != nil {
			return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
		}
		if err := validator.New().Struct(manifest); err != nil {
			return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
		}

		m.Delete("modules")
		manifest.Settings = m
		return manifest, nil
	}
	return nil, nil
}

func decodeModules(m *settings.Map, manifest *Manifest) error {
	raw, ok := m.Get("modules")
	if !ok || raw == nil {
		return nil
	}
	return settings.NewStore(settings.MapOf("modules", raw)).Decode(manifest)
}
