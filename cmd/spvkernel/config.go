package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/wippyai/spvkernel/autolocals"
	"github.com/wippyai/spvkernel/frontend"
	"github.com/wippyai/spvkernel/kcache"
)

const defaultConfigFile = "spvkernel.toml"

type colorMode string

const (
	colorAuto colorMode = "auto"
	colorOn   colorMode = "on"
	colorOff  colorMode = "off"
)

func readColorMode(value string) (colorMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return colorAuto, nil
	case "on":
		return colorOn, nil
	case "off":
		return colorOff, nil
	default:
		return "", fmt.Errorf("invalid color value %q (expected auto|on|off)", value)
	}
}

// fileConfig mirrors spvkernel.toml.
type fileConfig struct {
	Devices          int    `toml:"devices"`
	Jobs             int    `toml:"jobs"`
	PromoteLocals    bool   `toml:"promote_locals"`
	AtomicWorkaround bool   `toml:"atomic_workaround"`
	CacheDir         string `toml:"cache_dir"`
	Color            string `toml:"color"`
	Locals           struct {
		Only []string `toml:"only"`
		Skip []string `toml:"skip"`
	} `toml:"locals"`
}

func readConfigFile(path string) (fileConfig, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if fc.Devices < 0 {
		return fileConfig{}, fmt.Errorf("%s: devices must be positive", path)
	}
	return fc, nil
}

// settings is the file config with command-line overrides applied.
type settings struct {
	Color            colorMode
	CacheDir         string
	Only             []string
	Skip             []string
	Devices          int
	Jobs             int
	PromoteLocals    bool
	AtomicWorkaround bool
	UseCache         bool
	Verbose          bool
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	var fc fileConfig
	if _, err := os.Stat(path); err == nil {
		if fc, err = readConfigFile(path); err != nil {
			return settings{}, err
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return settings{}, err
	}
	return mergeFlags(cmd, fc)
}

func mergeFlags(cmd *cobra.Command, fc fileConfig) (settings, error) {
	flags := cmd.Flags()
	mode, err := readColorMode(fc.Color)
	if err != nil {
		return settings{}, err
	}
	s := settings{
		Color:            mode,
		CacheDir:         fc.CacheDir,
		Only:             fc.Locals.Only,
		Skip:             fc.Locals.Skip,
		Devices:          max(fc.Devices, 1),
		Jobs:             fc.Jobs,
		PromoteLocals:    fc.PromoteLocals,
		AtomicWorkaround: fc.AtomicWorkaround,
	}

	if flags.Changed("devices") {
		if s.Devices, err = flags.GetInt("devices"); err != nil {
			return settings{}, err
		}
		if s.Devices < 1 {
			return settings{}, fmt.Errorf("--devices must be at least 1")
		}
	}
	if flags.Changed("jobs") {
		if s.Jobs, err = flags.GetInt("jobs"); err != nil {
			return settings{}, err
		}
	}
	if flags.Changed("promote-locals") {
		s.PromoteLocals, _ = flags.GetBool("promote-locals")
	}
	if flags.Changed("atomic-workaround") {
		s.AtomicWorkaround, _ = flags.GetBool("atomic-workaround")
	}
	if off, _ := flags.GetBool("no-color"); off {
		s.Color = colorOff
	}
	s.UseCache, _ = flags.GetBool("cache")
	s.Verbose, _ = flags.GetBool("verbose")
	return s, nil
}

func (s settings) options() frontend.Options {
	opts := frontend.Options{
		Devices:          s.Devices,
		Jobs:             s.Jobs,
		PromoteLocals:    s.PromoteLocals,
		AtomicWorkaround: s.AtomicWorkaround,
	}
	if len(s.Only) > 0 {
		opts.Locals.Only = autolocals.NewWildcardMatcher(s.Only)
	}
	if len(s.Skip) > 0 {
		opts.Locals.Skip = autolocals.NewWildcardMatcher(s.Skip)
	}
	return opts
}

// selection lists the kernel patterns in a form suitable for cache keys.
func (s settings) selection() []string {
	var out []string
	for _, p := range s.Only {
		out = append(out, "only:"+p)
	}
	for _, p := range s.Skip {
		out = append(out, "skip:"+p)
	}
	return out
}

func (s settings) openCache() (*kcache.Cache, error) {
	if !s.UseCache {
		return nil, nil
	}
	dir := s.CacheDir
	if dir == "" {
		var err error
		if dir, err = kcache.DefaultDir("spvkernel"); err != nil {
			return nil, err
		}
	}
	return kcache.Open(dir)
}
