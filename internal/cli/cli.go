// Package cli implements the hlsched command-line interface.
//
// Commands:
//   - schedule: schedule a data-flow graph under resource limits
//   - verify: check a result file against its problem
//   - bench: schedule a directory of DFGs across scales and priority variants
//   - render: draw the scheduled DFG as DOT, SVG, PNG or PDF
//   - serve: run the HTTP API
//   - cache: manage the local result cache
//
// All commands accept --verbose (-v) for debug logging and --config to
// point at a TOML configuration file.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/hlsched/pkg/buildinfo"
	"github.com/matzehuels/hlsched/pkg/cache"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "hlsched"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "hlsched schedules data-flow graphs under resource constraints",
		Long: `hlsched is an iterative, resource-constrained list scheduler for
high-level synthesis. It assigns every operation of a data-flow graph a start
cycle so that dependencies hold and no cycle uses more functional units of a
type than are available, while minimizing the schedule length.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.config/hlsched/config.toml)")

	root.AddCommand(c.scheduleCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.benchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// cfg returns the loaded configuration, or the defaults when the root
// pre-run has not happened (tests calling commands directly).
func (c *CLI) cfg() *Config {
	if c.config == nil {
		c.config = defaultConfig()
	}
	return c.config
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

// newCache opens the configured cache backend. A file cache whose
// directory cannot be determined degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cc := c.cfg().Cache
	if noCache || cc.Backend == cacheNone {
		return cache.NewNullCache(), nil
	}
	if cc.Backend == cacheRedis {
		return cache.NewRedisCache(ctx, cache.RedisOptions{URL: cc.RedisURL, Namespace: cc.Namespace})
	}
	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Debug("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// library loads the resource library named by path, falling back to the
// configured library and then to the built-in one.
func (c *CLI) library(path string) (*resource.Library, error) {
	if path == "" {
		path = c.cfg().Library
	}
	if path == "" {
		return resource.DefaultLibrary(), nil
	}
	return loadLibrary(path)
}

// loadLibrary reads a TOML library, or the legacy whitespace format for
// any other extension.
func loadLibrary(path string) (*resource.Library, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return resource.LoadLibrary(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return resource.ReadLegacyLibrary(f)
}

// loadProblem loads a problem file, logging loader warnings.
func (c *CLI) loadProblem(path, format string, lib *resource.Library) (*pkgio.Problem, error) {
	opts := pkgio.LoadOptions{
		Library: lib,
		Warn:    func(f string, args ...any) { c.Logger.Warnf(f, args...) },
	}
	if format != "" {
		f, err := pkgio.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}
	return pkgio.Load(path, opts)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/hlsched/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/hlsched/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns os.Stdout for an empty path or "-", otherwise it
// creates the file at path.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
