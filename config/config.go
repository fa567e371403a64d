// Package config loads runtime parameters for the prefetch engine and its replay harness.
//
// Precedence, lowest first: compiled defaults (package constants), the config file,
// RLPF_* environment variables. The merged result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sugawarayuuta/sonnet"
	"gopkg.in/yaml.v3"

	"rlpf/constants"
	"rlpf/engine"
	"rlpf/sarsa"
	"rlpf/types"
	"rlpf/utils"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full runtime configuration.
type Config struct {
	Learning LearningConfig `json:"learning" yaml:"learning"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Sim      SimConfig      `json:"sim" yaml:"sim"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// LearningConfig holds the SARSA parameters.
type LearningConfig struct {
	Alpha   float64 `json:"alpha" yaml:"alpha"`
	Gamma   float64 `json:"gamma" yaml:"gamma"`
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
	Seed    int64   `json:"seed" yaml:"seed"`
}

// EngineConfig shapes each per-core engine.
type EngineConfig struct {
	QueueCapacity int    `json:"queue_capacity" yaml:"queue_capacity"`
	MaxStates     int    `json:"max_states" yaml:"max_states"`
	MaxPCs        int    `json:"max_pcs" yaml:"max_pcs"`
	FillLevel     string `json:"fill_level" yaml:"fill_level"`
	Successor     string `json:"successor" yaml:"successor"`
}

// SimConfig sizes the replay harness.
type SimConfig struct {
	Cores          int     `json:"cores" yaml:"cores"`
	RingSize       int     `json:"ring_size" yaml:"ring_size"`
	CacheSets      int     `json:"cache_sets" yaml:"cache_sets"`
	CacheWays      int     `json:"cache_ways" yaml:"cache_ways"`
	FilterCapacity uint    `json:"filter_capacity" yaml:"filter_capacity"`
	FilterFPRate   float64 `json:"filter_fp_rate" yaml:"filter_fp_rate"`
	FilterReset    int     `json:"filter_reset" yaml:"filter_reset"`
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
	Warm bool   `json:"warm" yaml:"warm"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Learning: LearningConfig{
			Alpha:   constants.DefaultAlpha,
			Gamma:   constants.DefaultGamma,
			Epsilon: constants.DefaultEpsilon,
			Seed:    constants.DefaultSeed,
		},
		Engine: EngineConfig{
			QueueCapacity: constants.QueueCapacity,
			FillLevel:     types.FillL2.String(),
			Successor:     sarsa.SuccessorFront.String(),
		},
		Sim: SimConfig{
			Cores:          1,
			RingSize:       constants.RingSize,
			CacheSets:      constants.CacheSets,
			CacheWays:      constants.CacheWays,
			FilterCapacity: constants.FilterCapacity,
			FilterFPRate:   constants.FilterFPRate,
			FilterReset:    constants.FilterReset,
		},
	}
}

// Load merges defaults, the file at path (if non-empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes .json files with sonnet and everything else as YAML,
// falling back to JSON when YAML rejects the document.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return sonnet.Unmarshal(data, cfg)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := sonnet.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	// Learning
	if v := os.Getenv("RLPF_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Learning.Alpha = f
		}
	}
	if v := os.Getenv("RLPF_GAMMA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Learning.Gamma = f
		}
	}
	if v := os.Getenv("RLPF_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Learning.Epsilon = f
		}
	}
	if v := os.Getenv("RLPF_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 0, 64); err == nil {
			cfg.Learning.Seed = i
		}
	}

	// Engine
	if v := os.Getenv("RLPF_QUEUE_CAPACITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.QueueCapacity = i
		}
	}
	if v := os.Getenv("RLPF_MAX_STATES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxStates = i
		}
	}
	if v := os.Getenv("RLPF_MAX_PCS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxPCs = i
		}
	}
	if v := os.Getenv("RLPF_FILL_LEVEL"); v != "" {
		cfg.Engine.FillLevel = v
	}
	if v := os.Getenv("RLPF_SUCCESSOR"); v != "" {
		cfg.Engine.Successor = v
	}

	// Sim
	if v := os.Getenv("RLPF_CORES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Sim.Cores = i
		}
	}

	// Store & metrics
	if v := os.Getenv("RLPF_SNAPSHOT"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("RLPF_WARM"); v != "" {
		cfg.Store.Warm = v == "true" || v == "1"
	}
	if v := os.Getenv("RLPF_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// Validate checks every field against its admissible range.
func (c Config) Validate() error {
	l := c.Learning
	if !(l.Alpha > 0 && l.Alpha <= 1) {
		return fmt.Errorf("%w: alpha must be in (0, 1]", ErrInvalid)
	}
	if !(l.Gamma >= 0 && l.Gamma <= 1) {
		return fmt.Errorf("%w: gamma must be in [0, 1]", ErrInvalid)
	}
	if !(l.Epsilon >= 0 && l.Epsilon <= 1) {
		return fmt.Errorf("%w: epsilon must be in [0, 1]", ErrInvalid)
	}

	e := c.Engine
	if e.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue_capacity must be >= 0", ErrInvalid)
	}
	if e.MaxStates < 0 || e.MaxPCs < 0 {
		return fmt.Errorf("%w: max_states and max_pcs must be >= 0", ErrInvalid)
	}
	if _, ok := types.ParseFillLevel(e.FillLevel); !ok {
		return fmt.Errorf("%w: fill_level %q (want l1, l2 or llc)", ErrInvalid, e.FillLevel)
	}
	if _, ok := sarsa.ParseSuccessor(e.Successor); !ok {
		return fmt.Errorf("%w: successor %q (want front or adjacent)", ErrInvalid, e.Successor)
	}

	s := c.Sim
	if s.Cores < 1 || s.Cores > constants.MaxCores {
		return fmt.Errorf("%w: cores must be in [1, %d]", ErrInvalid, constants.MaxCores)
	}
	if !powerOfTwo(s.RingSize) {
		return fmt.Errorf("%w: ring_size must be a power of two", ErrInvalid)
	}
	if !powerOfTwo(s.CacheSets) {
		return fmt.Errorf("%w: cache_sets must be a power of two", ErrInvalid)
	}
	if s.CacheWays < 1 {
		return fmt.Errorf("%w: cache_ways must be >= 1", ErrInvalid)
	}
	if s.FilterCapacity == 0 || !(s.FilterFPRate > 0 && s.FilterFPRate < 1) {
		return fmt.Errorf("%w: filter_capacity must be > 0 and filter_fp_rate in (0, 1)", ErrInvalid)
	}
	if s.FilterReset < 1 {
		return fmt.Errorf("%w: filter_reset must be >= 1", ErrInvalid)
	}
	return nil
}

// EngineFor derives the engine configuration of one core. Core i explores with seed+i.
// Call only on a validated Config.
func (c Config) EngineFor(core int) engine.Config {
	fill, _ := types.ParseFillLevel(c.Engine.FillLevel)
	succ, _ := sarsa.ParseSuccessor(c.Engine.Successor)
	return engine.Config{
		Name:          "core" + utils.Itoa(core),
		Alpha:         c.Learning.Alpha,
		Gamma:         c.Learning.Gamma,
		Epsilon:       c.Learning.Epsilon,
		Seed:          c.Learning.Seed + int64(core),
		QueueCapacity: c.Engine.QueueCapacity,
		MaxStates:     c.Engine.MaxStates,
		MaxPCs:        c.Engine.MaxPCs,
		FillLevel:     fill,
		Successor:     succ,
	}
}

func powerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
