package reference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog: справочники по имени (без учёта регистра).
type Catalog map[string]EnumDirectory

func (c Catalog) Get(name string) (EnumDirectory, bool) {
	d, ok := c[strings.ToLower(name)]
	return d, ok
}

// LoadEnumCatalog читает все *.yaml / *.yml из dir. Нет папки: пустой каталог.
func LoadEnumCatalog(dir string) (Catalog, error) {
	result := Catalog{}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var enumDir EnumDirectory
		if err := yaml.Unmarshal(data, &enumDir); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		// имя: из файла, если не задано внутри
		if enumDir.Name == "" {
			enumDir.Name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		key := strings.ToLower(enumDir.Name)
		if _, dup := result[key]; dup {
			return nil, fmt.Errorf("%s: duplicate enum %q", path, enumDir.Name)
		}
		result[key] = enumDir
	}
	return result, nil
}
