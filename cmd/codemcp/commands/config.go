package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/codemcp/internal/config"
	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/paths"
	"github.com/thoreinstein/codemcp/pkg/fileutil"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage codemcp settings",
	Long: `Manage codemcp settings stored in ~/.config/codemcp/config.yaml.

Without a subcommand, lists all settings. Any setting can be overridden
for one invocation with a CODEMCP_ environment variable, e.g.
CODEMCP_AUTO_EDIT=true or CODEMCP_FORMAT_VENV=env.`,
	Example: `  # List all settings
  codemcp config

  # Get a specific value
  codemcp config get auto_commit_commands

  # Apply writes without asking
  codemcp config set auto_edit true

See Also: codemcp doctor`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a setting",
	Long: `Get a single setting by key. Nested keys use dot notation, as in
format.venv. List values are printed one per line.`,
	Example: `  codemcp config get format.venv
  codemcp config get auto_commit_commands

See Also: codemcp config set, codemcp config list`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Long: `Set a setting and write the settings file.

Boolean keys accept true/false, 1/0 and similar. auto_commit_commands takes
a comma-separated list of command names. format.primary_args and
format.secondary_args take space-separated arguments; pass -- before the
key when the arguments start with a dash.`,
	Example: `  codemcp config set commit_prompt true
  codemcp config set auto_commit_commands format,lint,typecheck
  codemcp config set format.venv env

  # Replace ruff with isort
  codemcp config set format.secondary isort
  codemcp config set -- format.secondary_args "--profile black ."

See Also: codemcp config get, codemcp config list`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Long:  `List all settings in YAML format, including defaults and overrides.`,
	Example: `  codemcp config list

See Also: codemcp config get, codemcp config set`,
	Args: cobra.NoArgs,
	RunE: runConfigList,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the settings file in $EDITOR",
	Long: `Open the settings file in your editor, creating it with the defaults
first when it does not exist yet.`,
	Example: `  codemcp config edit

See Also: codemcp config list, codemcp doctor`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

// boolKeys are the settings parsed with strconv.ParseBool.
var boolKeys = map[string]bool{
	config.KeyAutoCommit:   true,
	config.KeyAutoEdit:     true,
	config.KeyCommitPrompt: true,
}

// argKeys are the settings holding formatter argument lists.
var argKeys = map[string]bool{
	config.KeyFormatPrimaryArgs:   true,
	config.KeyFormatSecondaryArgs: true,
}

func unknownKey(key string) error {
	return errors.NewUserError(
		errors.Newf("unknown setting %q", key),
		"valid keys: "+strings.Join(config.Keys(), ", "))
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !config.IsKnownKey(key) {
		return unknownKey(key)
	}

	w := cmd.OutOrStdout()
	switch v := viper.Get(key).(type) {
	case []any:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case []string:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	default:
		fmt.Fprintln(w, viper.GetString(key))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if !config.IsKnownKey(key) {
		return unknownKey(key)
	}

	var value any = raw
	switch {
	case boolKeys[key]:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.NewUserError(
				errors.Newf("%s must be a boolean, got %q", key, raw), "use true or false")
		}
		value = b
	case key == config.KeyAutoCommitCommands:
		value = parseList(raw)
	case argKeys[key]:
		value = parseArgs(raw)
	}

	viper.Set(key, value)
	current, err := currentSettings()
	if err != nil {
		return err
	}
	if errs := config.Validate(current); len(errs) > 0 {
		return errors.NewUserError(errs[0], "")
	}

	path, err := writeConfig(current)
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, value, path)
	}
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	current, err := currentSettings()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(current)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := settingsFile()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := writeConfig(config.Default()); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Created %s with the defaults\n", path)
		}
	}

	if err := openEditor(cmd.Context(), path); err != nil {
		return err
	}

	config.Init()
	if _, err := config.Load(path); err != nil {
		return errors.NewConfigError(err)
	}
	return nil
}

// parseList splits a comma-separated string, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseArgs splits s on whitespace. The result is never nil, so an empty
// string clears the arguments instead of restoring the defaults.
func parseArgs(s string) []string {
	args := strings.Fields(s)
	if args == nil {
		return []string{}
	}
	return args
}

// currentSettings decodes the effective settings from viper.
func currentSettings() (*config.Config, error) {
	var c config.Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &c, nil
}

// settingsFile returns the file config set and edit write to. A
// config.yaml picked up from the working directory is never rewritten.
func settingsFile() string {
	if configFile != "" {
		return configFile
	}
	return paths.ConfigFile()
}

// writeConfig writes c to the settings file and returns its path.
func writeConfig(c *config.Config) (string, error) {
	path := settingsFile()
	if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
		return "", errors.Wrap(err, "creating config directory")
	}
	if err := fileutil.AtomicWriteYAML(path, c, 0o600); err != nil {
		return "", errors.Wrap(err, "writing config file")
	}
	return path, nil
}
