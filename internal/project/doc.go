// Package project reads and writes codemcp.toml, the per-project command
// table.
//
// A project file carries an optional project name, an optional multi-line
// prompt addressed to whoever drives the commands, and a [commands] table
// that maps each command name to the argument vector an external runner
// executes. Two shapes are accepted per command:
//
//	[commands]
//	lint = ["./run_lint.sh"]
//
//	[commands.test]
//	command = ["./run_test.sh"]
//	doc = "Accepts a pytest-style test selector as an argument."
//
// The table is inert data: it is read once per invocation and never
// mutated while commands run.
package project
