package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mhollis/baselint"
	"github.com/mhollis/baselint/rules"
)

// fileConfig mirrors .baselint.yml.
type fileConfig struct {
	FlagNewlyAvailable bool       `yaml:"flag_newly_available"`
	RulesDir           string     `yaml:"rules_dir"`
	Performance        perfConfig `yaml:"performance"`
}

// perfConfig carries Config overrides. Durations are Go duration
// strings ("300ms", "5s"); missing or zero keys keep the defaults.
type perfConfig struct {
	DebounceInterval   string `yaml:"debounce_interval"`
	ParseTimeout       string `yaml:"parse_timeout"`
	MaxFileSize        int64  `yaml:"max_file_size"`
	LargeFileThreshold int64  `yaml:"large_file_threshold"`
	MemoCapacity       int    `yaml:"memo_capacity"`
	MemoryThreshold    int64  `yaml:"memory_threshold"`
	SweepInterval      string `yaml:"sweep_interval"`
	MemoMaxAge         string `yaml:"memo_max_age"`
}

// settings is the merged view a command runs with: defaults, overlaid
// by the config file, overlaid by flags given on the command line.
type settings struct {
	cfg      baselint.Config
	flagLow  bool
	rulesDir string
}

// loadSettings reads the config file (--config, or .baselint.yml at
// the repo root of startDir) and applies any explicitly-set flags from
// cmd on top.
func loadSettings(cmd *cobra.Command, startDir string) (*settings, error) {
	s := &settings{cfg: baselint.DefaultConfig()}

	path := flagConfig
	explicit := path != ""
	if !explicit {
		path = filepath.Join(findRepoRoot(startDir), ".baselint.yml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := fc.apply(s); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file is fine.
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if cmd.Flags().Changed("flag-newly-available") {
		s.flagLow = flagNewlyAvailable
	}
	if cmd.Flags().Changed("rules-dir") {
		s.rulesDir = flagRulesDir
	}
	return s, nil
}

func (fc *fileConfig) apply(s *settings) error {
	s.flagLow = fc.FlagNewlyAvailable
	s.rulesDir = fc.RulesDir

	p := fc.Performance
	if err := setDuration(&s.cfg.DebounceInterval, p.DebounceInterval, "debounce_interval"); err != nil {
		return err
	}
	if err := setDuration(&s.cfg.ParseTimeout, p.ParseTimeout, "parse_timeout"); err != nil {
		return err
	}
	if err := setDuration(&s.cfg.SweepInterval, p.SweepInterval, "sweep_interval"); err != nil {
		return err
	}
	if err := setDuration(&s.cfg.MemoMaxAge, p.MemoMaxAge, "memo_max_age"); err != nil {
		return err
	}
	if p.MaxFileSize > 0 {
		s.cfg.MaxFileSize = p.MaxFileSize
	}
	if p.LargeFileThreshold > 0 {
		s.cfg.LargeFileThreshold = p.LargeFileThreshold
	}
	if p.MemoCapacity > 0 {
		s.cfg.MemoCapacity = p.MemoCapacity
	}
	if p.MemoryThreshold > 0 {
		s.cfg.MemoryThreshold = p.MemoryThreshold
	}
	return nil
}

func setDuration(dst *time.Duration, raw, key string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// newAnalyzer builds an Analyzer from merged settings. Rule scripts
// come from --rules-dir (or the config file) when given, otherwise
// from the embedded bundle.
func newAnalyzer(s *settings) (*baselint.Analyzer, error) {
	opts := []baselint.Option{
		baselint.WithConfig(s.cfg),
		baselint.WithFlagNewlyAvailable(s.flagLow),
	}
	if s.rulesDir != "" {
		opts = append(opts, baselint.WithRulesDir(s.rulesDir))
	} else {
		opts = append(opts, baselint.WithRulesFS(rules.FS))
	}
	return baselint.New(opts...)
}
