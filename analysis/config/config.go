// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the options of the leakage analysis.
// If some field is not defined in the config file, it will be set to its default value by Load.
// private fields are not populated from a config file, but computed after initialization
type Config struct {
	Options `yaml:"options" toml:"options"`

	sourceFile string

	// SolverBinaries maps the names of external MaxSAT backends to the path of their binary.
	// Entries override the default paths of the backends.
	SolverBinaries map[string]string `yaml:"solver-binaries" toml:"solver-binaries"`

	// SolverOptions maps the names of external MaxSAT backends to additional command line options. The instance
	// file is always the last argument.
	SolverOptions map[string][]string `yaml:"solver-options" toml:"solver-options"`
}

// Options are the scalar settings of the analysis
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level" toml:"log-level"`

	// Handler is the textual specification of the method invocation handler, e.g.
	// "handler=inlining;maxrec=2;bot={handler=summary;bot=basic}"
	Handler string `yaml:"handler" toml:"handler"`

	// BitWidth is the number of bits of the integers of the analyzed program
	BitWidth int `yaml:"bit-width" toml:"bit-width"`

	// LeakageAlgorithm is the name of the min-cut algorithm. See the leakage package for the list of algorithms.
	LeakageAlgorithm string `yaml:"leakage-algorithm" toml:"leakage-algorithm"`

	// NoRoundUp disables the rescaling of non-integer weights before they are rounded up for a MaxSAT solver
	NoRoundUp bool `yaml:"no-round-up" toml:"no-round-up"`

	// MaxReplicatedWeight bounds the number of weighted variables of the cost network built by the in-process
	// MaxSAT backend. If it is <= 0, the default is used.
	MaxReplicatedWeight int `yaml:"max-replicated-weight" toml:"max-replicated-weight"`

	// NoResultPolicy is what the leakage computation does when a solver does not produce a result:
	// "infinite" reports an unbounded leakage, "abort" returns an error
	NoResultPolicy string `yaml:"no-result-policy" toml:"no-result-policy"`

	// MetricsFile is a file where the prometheus metrics of a run are written in text format. Empty means no
	// metrics are written.
	MetricsFile string `yaml:"metrics-file" toml:"metrics-file"`

	// DotDir is the directory where summary graphs are written when the summary handler has a dot option.
	DotDir string `yaml:"dot-dir" toml:"dot-dir"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn" toml:"silence-warn"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:     "",
		SolverBinaries: map[string]string{},
		SolverOptions:  map[string][]string{},
		Options: Options{
			LogLevel:            int(InfoLevel),
			Handler:             DefaultHandler,
			BitWidth:            DefaultBitWidth,
			LeakageAlgorithm:    DefaultLeakageAlgorithm,
			NoRoundUp:           false,
			MaxReplicatedWeight: DefaultMaxReplicatedWeight,
			NoResultPolicy:      NoResultInfinite,
			MetricsFile:         "",
			DotDir:              "",
			SilenceWarn:         false,
		},
	}
}

// Load reads a configuration from a file. The file is parsed as yaml, and as toml if the yaml parser fails or the
// file has a .toml extension.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b, strings.HasSuffix(filename, ".toml"))
	if err != nil {
		return nil, err
	}
	cfg.sourceFile = filename
	return cfg, nil
}

// Parse parses the contents of a config file. If preferToml is true, toml is tried before yaml.
func Parse(b []byte, preferToml bool) (*Config, error) {
	cfg := NewDefault()
	var errYaml, errToml error
	if preferToml {
		errToml = toml.Unmarshal(b, cfg)
		if errToml != nil {
			cfg = NewDefault()
			errYaml = yaml.Unmarshal(b, cfg)
		}
	} else {
		errYaml = yaml.Unmarshal(b, cfg)
		if errYaml != nil {
			cfg = NewDefault()
			errToml = toml.Unmarshal(b, cfg)
		}
	}
	if errYaml != nil && errToml != nil {
		return nil, fmt.Errorf("could not unmarshal config file, not as yaml: %w, not as toml: %v",
			errYaml, errToml)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if c.LogLevel == 0 {
		c.LogLevel = int(InfoLevel)
	}
	if c.Handler == "" {
		c.Handler = DefaultHandler
	}
	if c.BitWidth <= 0 {
		c.BitWidth = DefaultBitWidth
	}
	if c.BitWidth > 64 {
		return fmt.Errorf("bit-width %d is larger than 64", c.BitWidth)
	}
	if c.LeakageAlgorithm == "" {
		c.LeakageAlgorithm = DefaultLeakageAlgorithm
	}
	if c.MaxReplicatedWeight <= 0 {
		c.MaxReplicatedWeight = DefaultMaxReplicatedWeight
	}
	switch c.NoResultPolicy {
	case "":
		c.NoResultPolicy = NoResultInfinite
	case NoResultInfinite, NoResultAbort:
	default:
		return fmt.Errorf("no-result-policy should be %q or %q, not %q", NoResultInfinite, NoResultAbort,
			c.NoResultPolicy)
	}
	if c.SolverBinaries == nil {
		c.SolverBinaries = map[string]string{}
	}
	if c.SolverOptions == nil {
		c.SolverOptions = map[string][]string{}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	if path.IsAbs(filename) || c.sourceFile == "" {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// RoundUp returns true if non-integer weights should be rescaled
func (c Config) RoundUp() bool {
	return !c.NoRoundUp
}

// SolverBinary returns the binary configured for an external backend, or def if none is configured
func (c Config) SolverBinary(backend string, def string) string {
	if p, ok := c.SolverBinaries[backend]; ok && p != "" {
		return c.RelPath(p)
	}
	return def
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
