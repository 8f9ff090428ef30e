// Package fileops changes files inside a project on behalf of an agent and
// records every change in git.
//
// Writes go through an approval step unless auto-edit is enabled:
// [Writer.Propose] stores the new content as a pending change and returns
// a unified diff preview; [Writer.Apply] writes an approved change, stages
// it and commits it. Existing files must already be tracked by git so that
// every modification can be reviewed and reverted.
//
// [Chmod] only toggles the execute bits (a+x, a-x), the one permission
// git records.
package fileops
