// Package settings persists player preferences for the terminal host.
package settings

import (
	"fmt"
	"time"

	"github.com/quasilyte/gdata/v2"
	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/world"
	"github.com/wricardo/clara/pkg/logger"
	"gopkg.in/yaml.v3"
)

// AppName is the gdata application directory
const AppName = "clara"

const (
	settingsObject   = "settings"
	settingsProperty = "preferences"
)

// Preferences are the player's saved defaults
type Preferences struct {
	DetailLevel  int           `yaml:"detailLevel"`
	Theme        assets.Theme  `yaml:"theme"`
	Seed         int64         `yaml:"seed"`
	TurnCooldown time.Duration `yaml:"turnCooldown"`
	MoveCooldown time.Duration `yaml:"moveCooldown"`
	SoundEnabled bool          `yaml:"soundEnabled"`
	LastLevel    string        `yaml:"lastLevel,omitempty"`
}

// DefaultPreferences returns the built-in defaults
func DefaultPreferences() *Preferences {
	cfg := placement.DefaultConfig()
	eng := engine.DefaultOptions()
	return &Preferences{
		DetailLevel:  cfg.DetailLevel,
		Theme:        cfg.Theme,
		Seed:         cfg.Seed,
		TurnCooldown: eng.TurnCooldown,
		MoveCooldown: eng.MoveCooldown,
		SoundEnabled: true,
	}
}

// WorldOptions converts the preferences into level-load options
func (p *Preferences) WorldOptions() world.Options {
	return world.Options{
		Placement: placement.Config{
			DetailLevel: p.DetailLevel,
			Theme:       p.Theme,
			Seed:        p.Seed,
		}.Normalize(),
		Engine: engine.Options{
			TurnCooldown: p.TurnCooldown,
			MoveCooldown: p.MoveCooldown,
		},
	}
}

// Store is the subset of gdata.Manager the manager needs
type Store interface {
	ObjectPropExists(objectKey, propKey string) bool
	LoadObjectProp(objectKey, propKey string) ([]byte, error)
	SaveObjectProp(objectKey, propKey string, data []byte) error
}

// OpenStore opens the gdata store for the app. A nil store with an error
// means the platform has no writable data directory.
func OpenStore(appName string) (Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}
	return m, nil
}

// Manager loads and saves preferences. With a nil store it runs in memory
// only and Save is a no-op.
type Manager struct {
	store Store
	prefs *Preferences
}

// NewManager creates a manager and loads saved preferences, falling back to
// the defaults when they cannot be read.
func NewManager(store Store) *Manager {
	m := &Manager{store: store, prefs: DefaultPreferences()}
	if err := m.Load(); err != nil {
		logger.Log.WithError(err).Warn("Failed to load settings, using defaults")
	}
	return m
}

// Persistent reports whether preferences survive the process
func (m *Manager) Persistent() bool {
	return m.store != nil
}

// Load reads the saved preferences
func (m *Manager) Load() error {
	if m.store == nil || !m.store.ObjectPropExists(settingsObject, settingsProperty) {
		m.prefs = DefaultPreferences()
		return nil
	}

	data, err := m.store.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		m.prefs = DefaultPreferences()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Fields missing from the document keep their defaults
	loaded := DefaultPreferences()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		m.prefs = DefaultPreferences()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if _, err := assets.ParseTheme(string(loaded.Theme)); err != nil {
		loaded.Theme = assets.ThemePastoral
	}
	loaded.DetailLevel = assets.ClampDetail(loaded.DetailLevel)

	m.prefs = loaded
	logger.Log.Debug("Settings loaded")
	return nil
}

// Save writes the preferences
func (m *Manager) Save() error {
	if m.store == nil {
		return nil
	}
	data, err := yaml.Marshal(m.prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := m.store.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	logger.Log.Debug("Settings saved")
	return nil
}

// Preferences returns the current preferences
func (m *Manager) Preferences() *Preferences {
	return m.prefs
}

// SetDetailLevel sets the detail level, clamped to 1..3
func (m *Manager) SetDetailLevel(detail int) {
	m.prefs.DetailLevel = assets.ClampDetail(detail)
}

// SetTheme sets the theme by name
func (m *Manager) SetTheme(name string) error {
	theme, err := assets.ParseTheme(name)
	if err != nil {
		return err
	}
	m.prefs.Theme = theme
	return nil
}

// SetSeed sets the placement seed
func (m *Manager) SetSeed(seed int64) {
	m.prefs.Seed = seed
}

// SetCooldowns sets both cooldowns; negative values become zero
func (m *Manager) SetCooldowns(turn, move time.Duration) {
	m.prefs.TurnCooldown = max(turn, 0)
	m.prefs.MoveCooldown = max(move, 0)
}

// SetSoundEnabled toggles the death and win tones
func (m *Manager) SetSoundEnabled(enabled bool) {
	m.prefs.SoundEnabled = enabled
}

// SetLastLevel remembers the last played level
func (m *Manager) SetLastLevel(id string) {
	m.prefs.LastLevel = id
}
