// Package config holds the settings of one lowering run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// MaxTempLimit is the size of the temporary identifier pool.
const MaxTempLimit = 15

// FileName is the settings file looked up in the working directory.
const FileName = "sharplua.toml"

// Settings configures the lowering pass and its driver.
type Settings struct {
	// Newest selects native operators over runtime helper calls.
	Newest bool

	// TempLimit bounds the temporaries one function may allocate.
	// Defaults to MaxTempLimit and never exceeds it.
	TempLimit int

	// Jobs bounds the units lowered in parallel. 0 means GOMAXPROCS.
	Jobs int

	// Templates lists member template files, relative to the settings file.
	Templates []string

	// Verbose enables progress output.
	Verbose bool
}

// Default returns the default settings.
func Default() *Settings {
	return &Settings{TempLimit: MaxTempLimit}
}

type settingsFile struct {
	Newest    *bool    `toml:"newest"`
	TempLimit *int     `toml:"temp_limit"`
	Jobs      *int     `toml:"jobs"`
	Templates []string `toml:"templates"`
	Verbose   *bool    `toml:"verbose"`
}

// LoadFile reads settings from a TOML file on top of the defaults.
func LoadFile(path string) (*Settings, error) {
	var f settingsFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	s := Default()
	if f.Newest != nil {
		s.Newest = *f.Newest
	}
	if f.TempLimit != nil {
		s.TempLimit = *f.TempLimit
	}
	if f.Jobs != nil {
		s.Jobs = *f.Jobs
	}
	if f.Verbose != nil {
		s.Verbose = *f.Verbose
	}
	dir := filepath.Dir(path)
	for _, t := range f.Templates {
		if !filepath.IsAbs(t) {
			t = filepath.Join(dir, t)
		}
		s.Templates = append(s.Templates, t)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate rejects negative limits and clamps TempLimit to the pool size.
func (s *Settings) Validate() error {
	if s.TempLimit < 0 {
		return fmt.Errorf("temp_limit must not be negative, got %d", s.TempLimit)
	}
	if s.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", s.Jobs)
	}
	if s.TempLimit == 0 || s.TempLimit > MaxTempLimit {
		s.TempLimit = MaxTempLimit
	}
	return nil
}

// DefaultPath returns the settings file to load when none is given:
// SHARPLUA_CONFIG if set, otherwise sharplua.toml in the working directory
// when it exists. An empty result means built-in defaults.
func DefaultPath() string {
	if p := os.Getenv("SHARPLUA_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}
