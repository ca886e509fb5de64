package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings are the file/env layer under the CLI flags.
type Settings struct {
	LogLevel   string            `mapstructure:"log_level"`
	LogFile    string            `mapstructure:"log_file"`
	Threads    int               `mapstructure:"threads"`
	DirCache   int               `mapstructure:"dir_cache"`
	FailClosed bool              `mapstructure:"fail_closed"`
	SkipEmpty  bool              `mapstructure:"skip_empty"`
	SkipLinks  bool              `mapstructure:"skip_links"`
	Manifest   string            `mapstructure:"manifest"`
	Whitelist  WhitelistSettings `mapstructure:"whitelist"`
}

type WhitelistSettings struct {
	IgnoreEphemeral bool     `mapstructure:"ignore_ephemeral"`
	Ephemeral       []string `mapstructure:"ephemeral"`
	Patterns        []string `mapstructure:"patterns"`
	PatternFile     string   `mapstructure:"pattern_file"`
}

const envPrefix = "HIDDENSCAN"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("threads", 1)
	v.SetDefault("dir_cache", defaultDirCache)
	v.SetDefault("fail_closed", false)
	v.SetDefault("skip_empty", false)
	v.SetDefault("skip_links", false)
	v.SetDefault("manifest", "")
	v.SetDefault("whitelist.ignore_ephemeral", true)
	v.SetDefault("whitelist.ephemeral", DefaultEphemeralDirs)
	v.SetDefault("whitelist.patterns", []string{})
	v.SetDefault("whitelist.pattern_file", "")
}

// LoadSettings reads defaults, then the optional file, then HIDDENSCAN_* env vars.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if errors.As(err, &nf) {
				return nil, fmt.Errorf("%w: %s not found", ErrConfigInvalid, path)
			}
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if s.Whitelist.PatternFile != "" {
		extra, err := LoadPatterns(s.Whitelist.PatternFile)
		if err != nil {
			return nil, fmt.Errorf("%w: whitelist pattern file: %v", ErrConfigInvalid, err)
		}
		s.Whitelist.Patterns = append(s.Whitelist.Patterns, extra...)
	}
	return &s, nil
}

// Options turns settings into scan options; the CLI overrides fields afterwards.
func (s *Settings) Options() ScanOptions {
	return ScanOptions{
		Threads:    s.Threads,
		DirCache:   s.DirCache,
		FailClosed: s.FailClosed,
		SkipEmpty:  s.SkipEmpty,
		SkipLinks:  s.SkipLinks,
		Volume:     -1,
		Manifest:   s.Manifest,
		Whitelist: WhitelistConfig{
			IgnoreEphemeral: s.Whitelist.IgnoreEphemeral,
			EphemeralDirs:   append([]string(nil), s.Whitelist.Ephemeral...),
			Patterns:        append([]string(nil), s.Whitelist.Patterns...),
		},
	}
}
