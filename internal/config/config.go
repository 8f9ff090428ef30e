// Package config manages codemcp's own settings using Viper.
package config

import (
	"io/fs"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/launcher"
	"github.com/thoreinstein/codemcp/internal/paths"
	"github.com/thoreinstein/codemcp/internal/project"
)

// EnvPrefix is the prefix for environment overrides, e.g. CODEMCP_AUTO_EDIT.
const EnvPrefix = "CODEMCP"

// Setting keys.
const (
	KeyAutoCommit          = "auto_commit"
	KeyAutoCommitCommands  = "auto_commit_commands"
	KeyAutoEdit            = "auto_edit"
	KeyCommitPrompt        = "commit_prompt"
	KeyAcceptEnv           = "accept_env"
	KeyFormatVenv          = "format.venv"
	KeyFormatPrimary       = "format.primary"
	KeyFormatSecondary     = "format.secondary"
	KeyFormatPrimaryArgs   = "format.primary_args"
	KeyFormatSecondaryArgs = "format.secondary_args"
	KeyStateDir            = "state_dir"
)

// Config is the decoded settings document.
type Config struct {
	AutoCommit         bool     `mapstructure:"auto_commit" yaml:"auto_commit"`
	AutoCommitCommands []string `mapstructure:"auto_commit_commands" yaml:"auto_commit_commands"`
	AutoEdit           bool     `mapstructure:"auto_edit" yaml:"auto_edit"`
	CommitPrompt       bool     `mapstructure:"commit_prompt" yaml:"commit_prompt"`
	AcceptEnv          string   `mapstructure:"accept_env" yaml:"accept_env"`
	Format             Format   `mapstructure:"format" yaml:"format"`
	StateDir           string   `mapstructure:"state_dir" yaml:"state_dir,omitempty"`
}

// Format configures the formatter launcher. The argument lists follow the
// formatter's name; replacing a formatter usually means replacing its
// arguments too.
type Format struct {
	Venv          string   `mapstructure:"venv" yaml:"venv"`
	Primary       string   `mapstructure:"primary" yaml:"primary"`
	PrimaryArgs   []string `mapstructure:"primary_args" yaml:"primary_args"`
	Secondary     string   `mapstructure:"secondary" yaml:"secondary"`
	SecondaryArgs []string `mapstructure:"secondary_args" yaml:"secondary_args"`
}

// Default returns the built-in settings.
func Default() *Config {
	ls := launcher.DefaultSettings()
	return &Config{
		AutoCommit:         true,
		AutoCommitCommands: []string{project.CommandFormat, project.CommandLint},
		AcceptEnv:          project.AcceptEnv,
		Format: Format{
			Venv:          ls.Venv,
			Primary:       ls.Primary,
			PrimaryArgs:   ls.PrimaryArgs,
			Secondary:     ls.Secondary,
			SecondaryArgs: ls.SecondaryArgs,
		},
	}
}

// Init resets Viper and registers defaults, search paths and environment
// overrides. Call it once at startup before Load.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	d := Default()
	viper.SetDefault(KeyAutoCommit, d.AutoCommit)
	viper.SetDefault(KeyAutoCommitCommands, d.AutoCommitCommands)
	viper.SetDefault(KeyAutoEdit, d.AutoEdit)
	viper.SetDefault(KeyCommitPrompt, d.CommitPrompt)
	viper.SetDefault(KeyAcceptEnv, d.AcceptEnv)
	viper.SetDefault(KeyFormatVenv, d.Format.Venv)
	viper.SetDefault(KeyFormatPrimary, d.Format.Primary)
	viper.SetDefault(KeyFormatSecondary, d.Format.Secondary)
	viper.SetDefault(KeyFormatPrimaryArgs, d.Format.PrimaryArgs)
	viper.SetDefault(KeyFormatSecondaryArgs, d.Format.SecondaryArgs)
	viper.SetDefault(KeyStateDir, "")
}

// Load reads the settings file. An empty path searches the default
// locations and falls back to defaults when nothing is found; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrapf(errors.ErrNotFound, "config file %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}

	return &cfg, nil
}

// Keys lists every known setting key in display order.
func Keys() []string {
	return []string{
		KeyAutoCommit,
		KeyAutoCommitCommands,
		KeyAutoEdit,
		KeyCommitPrompt,
		KeyAcceptEnv,
		KeyFormatVenv,
		KeyFormatPrimary,
		KeyFormatPrimaryArgs,
		KeyFormatSecondary,
		KeyFormatSecondaryArgs,
		KeyStateDir,
	}
}

// IsKnownKey reports whether key names a setting.
func IsKnownKey(key string) bool {
	return slices.Contains(Keys(), key)
}

// LauncherSettings converts the format section into launcher settings.
// Unset fields keep the launcher defaults; an empty, non-nil argument list
// runs the formatter with no arguments.
func (c *Config) LauncherSettings() launcher.Settings {
	s := launcher.DefaultSettings()
	if c.Format.Venv != "" {
		s.Venv = c.Format.Venv
	}
	if c.Format.Primary != "" {
		s.Primary = c.Format.Primary
	}
	if c.Format.Secondary != "" {
		s.Secondary = c.Format.Secondary
	}
	if c.Format.PrimaryArgs != nil {
		s.PrimaryArgs = c.Format.PrimaryArgs
	}
	if c.Format.SecondaryArgs != nil {
		s.SecondaryArgs = c.Format.SecondaryArgs
	}
	return s
}

// ResolvedStateDir returns StateDir, or the XDG state directory when unset.
func (c *Config) ResolvedStateDir() string {
	if c.StateDir != "" {
		return c.StateDir
	}
	return paths.StateDir()
}

// AutoCommits reports whether a successful run of the named command
// should be committed.
func (c *Config) AutoCommits(name string) bool {
	return c.AutoCommit && slices.Contains(c.AutoCommitCommands, name)
}
