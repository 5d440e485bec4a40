package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/store"
)

// Cache backends.
const (
	cacheFile  = "file"
	cacheRedis = "redis"
	cacheNone  = "none"
)

// Config is the CLI configuration file.
//
//	library = "lib.toml"
//
//	[scheduler]
//	priority = "force"
//	max_iterations = 20
//	cycle_budget_factor = 10
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[store]
//	backend = "sqlite"
//	path = "runs.db"
type Config struct {
	// Library is the default resource library file.
	Library   string          `toml:"library"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Cache     CacheConfig     `toml:"cache"`
	Store     store.Config    `toml:"store"`
}

// SchedulerConfig holds defaults for the scheduler flags.
type SchedulerConfig struct {
	Priority          string `toml:"priority"`
	MaxIterations     int    `toml:"max_iterations"`
	CycleBudgetFactor int    `toml:"cycle_budget_factor"`
}

// CacheConfig selects the result cache.
type CacheConfig struct {
	// Backend is file (default), redis or none.
	Backend string `toml:"backend"`
	// Dir overrides the file cache directory.
	Dir       string `toml:"dir"`
	RedisURL  string `toml:"redis_url"`
	Namespace string `toml:"namespace"`
}

func defaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Priority:          string(sched.PriorityForce),
			MaxIterations:     sched.DefaultMaxIterations,
			CycleBudgetFactor: sched.DefaultCycleBudgetFactor,
		},
		Cache: CacheConfig{Backend: cacheFile},
		Store: store.Config{Backend: store.BackendSQLite},
	}
}

// loadConfig reads the config file at path. With an empty path the default
// location is tried and a missing file yields the defaults; an explicit
// path must exist.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOption, err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := sched.ParsePriorityMode(c.Scheduler.Priority); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", cacheFile, cacheNone:
	case cacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidOption, "redis cache needs redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidOption, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Scheduler.MaxIterations < 0 || c.Scheduler.CycleBudgetFactor < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "scheduler budgets must not be negative")
	}
	return nil
}

// storeConfig returns the store config with the SQLite path defaulted to
// the data directory when unset.
func (c *Config) storeConfig() (store.Config, error) {
	sc := c.Store
	if (sc.Backend == "" || sc.Backend == store.BackendSQLite) && sc.Path == "" {
		dir, err := dataDir()
		if err != nil {
			return sc, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sc, errors.Wrap(errors.ErrCodeStorage, err, "create %s", dir)
		}
		sc.Path = filepath.Join(dir, "runs.db")
	}
	return sc, nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/hlsched/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
