// Package config reads surveyor.toml and resolves the per-user state directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"surveyor/internal/trace"
	"surveyor/internal/tree"
)

const (
	// FileName is looked up from the working directory upwards.
	FileName = "surveyor.toml"
	// DefaultStoreFile is the model file name inside the state directory.
	DefaultStoreFile = "model.json"
	// DefaultMetaFile holds analyzer metadata inside the state directory.
	DefaultMetaFile = "cli.toml"
	// StateDirEnv overrides the state directory.
	StateDirEnv = "SURVEYOR_STATE_DIR"
)

// Config is the merged result of defaults and surveyor.toml.
type Config struct {
	// Path is the surveyor.toml the settings came from, "" for defaults.
	Path string `toml:"-"`
	// Root is the directory of Path; relative paths in the file resolve against it.
	Root string `toml:"-"`

	Store StoreConfig `toml:"store"`
	Tree  TreeConfig  `toml:"tree"`
	Meta  MetaConfig  `toml:"meta"`
	Trace TraceConfig `toml:"trace"`
}

type StoreConfig struct {
	Dir  string `toml:"dir"`
	File string `toml:"file"`
}

type TreeConfig struct {
	Grouping string `toml:"grouping"`
}

type MetaConfig struct {
	Path string `toml:"path"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

// Find walks from startDir to the filesystem root looking for surveyor.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load returns defaults merged with the nearest surveyor.toml, if any.
func Load(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Parse(path)
}

// Default returns the settings used without a surveyor.toml.
func Default() Config {
	return Config{
		Store: StoreConfig{File: DefaultStoreFile},
		Tree:  TreeConfig{Grouping: tree.GroupFlat.String()},
		Trace: TraceConfig{Level: trace.LevelOff.String(), Mode: trace.ModeStream.String()},
	}
}

// Parse reads one surveyor.toml. Unknown keys and invalid values are errors
// that name the file and the key.
func Parse(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%s: unknown key %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	if _, err := tree.ParseGrouping(c.Tree.Grouping); err != nil {
		return fmt.Errorf("[tree].grouping: %w", err)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if strings.ContainsRune(c.Store.File, os.PathSeparator) && !filepath.IsAbs(c.Store.File) {
		return fmt.Errorf("[store].file must be a file name or an absolute path, got %q", c.Store.File)
	}
	return nil
}

// Grouping returns the parsed tree grouping; Validate has vetted it.
func (c Config) Grouping() tree.Grouping {
	g, _ := tree.ParseGrouping(c.Tree.Grouping)
	return g
}

// StateDir resolves the state directory: [store].dir, then $SURVEYOR_STATE_DIR,
// then $XDG_STATE_HOME/surveyor, then ~/.surveyor/tooling.
func (c Config) StateDir() (string, error) {
	if c.Store.Dir != "" {
		return c.resolve(c.Store.Dir), nil
	}
	return DefaultStateDir()
}

// DefaultStateDir is the state directory when nothing overrides it.
func DefaultStateDir() (string, error) {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir, nil
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "surveyor"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine state directory: %w", err)
	}
	return filepath.Join(home, ".surveyor", "tooling"), nil
}

// StorePath is the backing model file.
func (c Config) StorePath() (string, error) {
	file := c.Store.File
	if file == "" {
		file = DefaultStoreFile
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	dir, err := c.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// MetaPath is the analyzer metadata file.
func (c Config) MetaPath() (string, error) {
	if c.Meta.Path != "" {
		return c.resolve(c.Meta.Path), nil
	}
	dir, err := c.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultMetaFile), nil
}

func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}
