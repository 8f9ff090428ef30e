// Package launcher runs the project's formatters in a fixed, fail-fast
// sequence.
//
// A [Plan] is an ordered list of steps. Each step has one or more
// alternative invocations; the first whose required file exists runs and
// the rest are skipped. The default plan mirrors a typical Python project:
//
//  1. black, through <venv>/bin/black when installed there, otherwise
//     through <venv>/bin/python -m black
//  2. ruff format, always through <venv>/bin/python -m ruff
//
// The first step that exits non-zero stops the sequence and its exit
// status becomes the launcher's.
package launcher
