// Package config loads the def-use pass's JSON configuration: which
// diagnostics are warnings versus errors, and whether the borderline
// push_front/pop_front suppression (spec.md's open question) stays on.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Config represents the configuration file structure. All fields are
// optional and fall back to DefaultOptions when unset.
type Config struct {
	// SuppressStackShiftWarnings controls whether push_front/pop_front
	// reads of a stack's storage suppress the uninitialized-use warning,
	// per spec.md §9's open question. Defaults to true (current
	// behavior preserved).
	SuppressStackShiftWarnings *bool `json:"suppressStackShiftWarnings,omitempty"`

	// MissingReturnIsError controls whether ERR_INSUFFICIENT (a
	// non-void function falling through without returning on some
	// path) is reported as an error or downgraded to a warning.
	MissingReturnIsError *bool `json:"missingReturnIsError,omitempty"`

	// Trace enables zap debug-level tracing of entry into each
	// analyzed unit, mirroring the original's commented-out LOG3/LOG4
	// calls.
	Trace *bool `json:"trace,omitempty"`
}

// ConfigFileNames are the names searched for a config file, in order
// of preference.
var ConfigFileNames = []string{
	"netdefuse.json",
	".netdefuserc",
	".netdefuserc.json",
}

// Options is the resolved, fully-populated configuration ToOptions and
// Merge produce.
type Options struct {
	SuppressStackShiftWarnings bool
	MissingReturnIsError       bool
	Trace                      bool
}

// DefaultOptions returns the pass's default behavior: push_front/pop_front
// suppression on (spec.md §9's open question preserved as-is),
// ERR_INSUFFICIENT reported as an error, tracing off.
func DefaultOptions() Options {
	return Options{
		SuppressStackShiftWarnings: true,
		MissingReturnIsError:       true,
		Trace:                      false,
	}
}

// Load searches for a config file starting from startDir and walking
// up to parent directories. Returns nil, "", nil if no config file is
// found anywhere on that walk.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}

	return &cfg, nil
}

// ToOptions converts c to Options, using DefaultOptions for unset
// fields. A nil receiver returns DefaultOptions unchanged.
func (c *Config) ToOptions() Options {
	opts := DefaultOptions()
	if c == nil {
		return opts
	}
	if c.SuppressStackShiftWarnings != nil {
		opts.SuppressStackShiftWarnings = *c.SuppressStackShiftWarnings
	}
	if c.MissingReturnIsError != nil {
		opts.MissingReturnIsError = *c.MissingReturnIsError
	}
	if c.Trace != nil {
		opts.Trace = *c.Trace
	}
	return opts
}

// MergeOptions holds CLI-flag overrides; a nil pointer field means
// "not specified on the CLI".
type MergeOptions struct {
	SuppressStackShiftWarnings *bool
	MissingReturnIsError       *bool
	Trace                      *bool
}

// Merge combines config-file options with CLI options. CLI options
// take precedence over config-file options when both are specified.
func (c *Config) Merge(cli MergeOptions) Options {
	opts := c.ToOptions()
	if cli.SuppressStackShiftWarnings != nil {
		opts.SuppressStackShiftWarnings = *cli.SuppressStackShiftWarnings
	}
	if cli.MissingReturnIsError != nil {
		opts.MissingReturnIsError = *cli.MissingReturnIsError
	}
	if cli.Trace != nil {
		opts.Trace = *cli.Trace
	}
	return opts
}
