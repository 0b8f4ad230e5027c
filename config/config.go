// Package config loads the TOML configuration of the featurino command.
package config

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/on-the-ground/featurino/feature"
	"github.com/on-the-ground/featurino/log"
	"github.com/on-the-ground/featurino/storage"
	"github.com/pkg/errors"
)

const (
	DefaultDataDir = "features"
	DefaultMergeOn = "id"
)

type Config struct {
	DataDir     string   `toml:"data_dir"`
	MergeOn     []string `toml:"merge_on"`
	ForceReload bool     `toml:"force_reload"`

	Storage Storage `toml:"storage"`
	Log     Log     `toml:"log"`
}

type Storage struct {
	Backend storage.Kind `toml:"backend"`
	// Path is the bolt file or pebble directory. Empty means a default under DataDir.
	Path         string `toml:"path"`
	Cache        bool   `toml:"cache"`
	CacheMaxCost int64  `toml:"cache_max_cost"`
}

type Log struct {
	Level       log.Level `toml:"level"`
	Development bool      `toml:"development"`
}

func Default() Config {
	return Config{
		DataDir: DefaultDataDir,
		MergeOn: []string{DefaultMergeOn},
		Storage: Storage{
			Backend:      storage.KindCSV,
			CacheMaxCost: storage.DefaultCacheMaxCost,
		},
		Log: Log{Level: log.LevelInfo},
	}
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrapf(err, "failed to decode config %s", path)
	}
	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %s", path)
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if len(c.MergeOn) == 0 {
		return errors.New("merge_on must name at least one column")
	}
	seen := make(map[string]bool, len(c.MergeOn))
	for _, k := range c.MergeOn {
		if k == "" {
			return errors.New("merge_on contains an empty column name")
		}
		if seen[k] {
			return errors.Errorf("merge_on lists %q twice", k)
		}
		seen[k] = true
	}
	switch c.Storage.Backend {
	case storage.KindCSV, storage.KindBolt, storage.KindPebble, storage.KindMemDB:
	default:
		return errors.Wrapf(storage.ErrUnknownBackend, "storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.CacheMaxCost < 0 {
		return errors.New("storage.cache_max_cost must not be negative")
	}
	switch c.Log.Level {
	case log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError:
	default:
		return errors.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}

// StoragePath returns Storage.Path, defaulting to a file or directory under DataDir.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	switch c.Storage.Backend {
	case storage.KindBolt:
		return filepath.Join(c.DataDir, "features.bolt")
	case storage.KindPebble:
		return filepath.Join(c.DataDir, "pebble")
	default:
		return ""
	}
}

// OpenBackend builds the configured backend, wrapped in a cache if asked to.
func (c Config) OpenBackend() (storage.Backend, error) {
	b, err := storage.Open(c.Storage.Backend, c.StoragePath())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open storage backend")
	}
	if !c.Storage.Cache {
		return b, nil
	}
	cached, err := storage.NewCached(b, c.Storage.CacheMaxCost)
	if err != nil {
		_ = storage.Close(b)
		return nil, errors.Wrap(err, "failed to create storage cache")
	}
	return cached, nil
}

// Feature returns the block configuration for a backend opened with OpenBackend.
func (c Config) Feature(backend storage.Backend) feature.Config {
	return feature.Config{
		DataDir:     c.DataDir,
		MergeOn:     append([]string(nil), c.MergeOn...),
		ForceReload: c.ForceReload,
		Backend:     backend,
	}
}
