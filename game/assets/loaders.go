package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileLoader resolves keys to files under Dir
type FileLoader struct {
	Dir string
}

// Load stats the asset file
func (l FileLoader) Load(ctx context.Context, key string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	path := filepath.Join(l.Dir, filepath.Base(key))
	info, err := os.Stat(path)
	if err != nil {
		return Asset{}, err
	}
	if info.IsDir() {
		return Asset{}, fmt.Errorf("%s is a directory", path)
	}
	return Asset{Key: key, Path: path, Size: info.Size()}, nil
}

// ManifestLoader resolves keys against the built-in catalog without touching
// the filesystem. Headless hosts use it.
type ManifestLoader struct {
	Catalog Catalog
}

// Load accepts only keys present in the catalog
func (l ManifestLoader) Load(ctx context.Context, key string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	catalog := l.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if !catalog.Contains(key) {
		return Asset{}, fmt.Errorf("not in manifest")
	}
	return Asset{Key: key}, nil
}
