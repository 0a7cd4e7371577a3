package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wricardo/clara/pkg/logger"
)

var (
	// ErrAssetLoad is returned when any asset of a preload batch fails
	ErrAssetLoad = errors.New("asset preload failed")
	// ErrAssetMissing is returned when a lookup asks for an asset that was not preloaded
	ErrAssetMissing = errors.New("asset not loaded")
)

// Asset is a resolved asset ready for synchronous lookup
type Asset struct {
	Key  string `json:"key"`
	Path string `json:"path,omitempty"`
	Size int64  `json:"size"`
}

// Loader resolves one asset key
type Loader interface {
	Load(ctx context.Context, key string) (Asset, error)
}

// Atlas holds every preloaded asset. It is read-only after Preload returns.
type Atlas struct {
	assets map[string]Asset
}

// Get returns a preloaded asset
func (a *Atlas) Get(key string) (Asset, error) {
	if a == nil {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetMissing, key)
	}
	asset, ok := a.assets[key]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetMissing, key)
	}
	return asset, nil
}

// Has reports whether key was preloaded
func (a *Atlas) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a.assets[key]
	return ok
}

// Len returns the number of loaded assets
func (a *Atlas) Len() int {
	if a == nil {
		return 0
	}
	return len(a.assets)
}

// Preload resolves every key concurrently. The first failure cancels the
// remaining loads and no atlas is returned.
func Preload(ctx context.Context, loader Loader, keys []string, concurrency int) (*Atlas, error) {
	if concurrency < 1 {
		concurrency = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	loaded := make(map[string]Asset, len(keys))

	for _, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			asset, err := loader.Load(gctx, key)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			mu.Lock()
			loaded[key] = asset
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("Asset preload aborted")
		return nil, fmt.Errorf("%w: %w", ErrAssetLoad, err)
	}

	logger.Log.WithField("assets", len(loaded)).Debug("Assets preloaded")
	return &Atlas{assets: loaded}, nil
}
