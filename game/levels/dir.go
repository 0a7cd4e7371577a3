package levels

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/service"
	"github.com/wricardo/clara/pkg/logger"
)

// ErrLevelNotFound is returned when no level matches an id
var ErrLevelNotFound = service.ErrLevelNotFound

// DirSource serves the *.json boards of one directory. The directory is
// indexed once and cached until RefreshCache.
type DirSource struct {
	dir     string
	levels  map[string]*engine.Level // by level id
	files   map[string]string        // level id -> file name
	indexed bool
	mu      sync.RWMutex
}

// NewDirSource creates a directory-backed level source
func NewDirSource(dir string) (*DirSource, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("levels directory does not exist: %s", dir)
	}
	return &DirSource{dir: dir}, nil
}

// Dir returns the directory the source reads
func (d *DirSource) Dir() string {
	return d.dir
}

// FetchLevel returns the level whose id (or file name without extension)
// matches. An empty id selects the first level by name.
func (d *DirSource) FetchLevel(ctx context.Context, id string) (*engine.Level, error) {
	if err := d.ensureIndex(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if id == "" {
		infos := d.infosLocked()
		if len(infos) == 0 {
			return nil, fmt.Errorf("%w: no levels in %s", ErrLevelNotFound, d.dir)
		}
		return d.levels[infos[0].ID], nil
	}
	if level, ok := d.levels[id]; ok {
		return level, nil
	}
	stem := strings.TrimSuffix(id, ".json")
	for levelID, file := range d.files {
		if strings.TrimSuffix(file, ".json") == stem {
			return d.levels[levelID], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, id)
}

// ListLevels returns one entry per level id, sorted by name
func (d *DirSource) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	if err := d.ensureIndex(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.infosLocked(), nil
}

func (d *DirSource) infosLocked() []*service.LevelInfo {
	infos := make([]*service.LevelInfo, 0, len(d.levels))
	for id, level := range d.levels {
		infos = append(infos, service.NewLevelInfo(level, d.files[id]))
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// SaveLevel validates a level and writes it to <id>.json. Levels without an
// id get a random one.
func (d *DirSource) SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error) {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	if strings.ContainsAny(level.ID, `/\`) || level.ID == "." || level.ID == ".." {
		return nil, fmt.Errorf("%w: bad id %q", engine.ErrInvalidLevel, level.ID)
	}
	if err := engine.ValidateLevel(level); err != nil {
		return nil, err
	}
	if err := d.ensureIndex(); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal level: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	filename, ok := d.files[level.ID]
	if !ok {
		filename = level.ID + ".json"
	}
	if err := os.WriteFile(filepath.Join(d.dir, filename), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write level file: %w", err)
	}

	d.levels[level.ID] = level
	d.files[level.ID] = filename
	return level, nil
}

// RefreshCache drops the index; the next call rescans the directory
func (d *DirSource) RefreshCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indexed = false
	d.levels = nil
	d.files = nil
}

func (d *DirSource) ensureIndex() error {
	d.mu.RLock()
	if d.indexed {
		d.mu.RUnlock()
		return nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring write lock
	if d.indexed {
		return nil
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read levels directory: %w", err)
	}

	levels := make(map[string]*engine.Level)
	files := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		level, err := engine.LoadLevelFile(filepath.Join(d.dir, entry.Name()))
		if err != nil {
			// Skip invalid boards
			logger.Log.WithError(err).WithField("file", entry.Name()).Warn("Skipping level file")
			continue
		}
		if level.ID == "" {
			level.ID = strings.TrimSuffix(entry.Name(), ".json")
		}
		if prev, dup := files[level.ID]; dup {
			logger.Log.WithField("file", entry.Name()).WithField("first", prev).
				Warnf("Duplicate level id %q, keeping the first file", level.ID)
			continue
		}
		levels[level.ID] = level
		files[level.ID] = entry.Name()
	}

	d.levels = levels
	d.files = files
	d.indexed = true
	logger.Log.WithField("dir", d.dir).WithField("levels", len(levels)).Debug("Indexed levels")
	return nil
}
