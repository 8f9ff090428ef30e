// Package config manages codemcp's own settings.
//
// Settings are distinct from a project's codemcp.toml: they describe how
// the tool behaves (auto-commit, the approval workflow, which formatters
// the launcher runs) rather than what a project's commands are.
//
// # Configuration File
//
// Settings are read from ./config.yaml or $XDG_CONFIG_HOME/codemcp/config.yaml:
//
//	auto_commit: true
//	auto_commit_commands: [format, lint]
//	auto_edit: false
//	commit_prompt: false
//	accept_env: EXPECTTEST_ACCEPT
//	format:
//	  venv: .venv
//	  primary: black
//	  secondary: ruff
//
// Any key can be overridden from the environment with the CODEMCP_ prefix,
// with dots replaced by underscores (CODEMCP_FORMAT_VENV).
//
// # Loading
//
//	config.Init()
//	cfg, err := config.Load("")
//	if err != nil {
//		return err
//	}
//
// Load validates the result; [Validate] can also be called directly.
package config
