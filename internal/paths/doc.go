// Package paths provides cross-platform path resolution for codemcp.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// Specification compliance:
//
//	| Purpose          | Location                          |
//	|------------------|-----------------------------------|
//	| tool config      | <ConfigHome>/codemcp/config.yaml  |
//	| pending changes  | <StateHome>/codemcp/pending/      |
//
// The per-project command table lives next to the code it describes, in a
// file named [ProjectFileName] at the project root.
package paths
