// Package logging provides structured logging for the codemcp CLI using slog.
//
// Logs describe what codemcp itself is doing (which project file was found,
// which formatter alternative was chosen, which git commit was made). The
// output of external tools is never routed through the logger; it streams
// straight to the terminal.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  slog.LevelInfo,
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	logger.Info("running command", "name", "lint")
//
// # Testing
//
// For tests, use [ForTest] to capture log output via the testing framework:
//
//	func TestSomething(t *testing.T) {
//		logger := logging.ForTest(t)
//		// logs appear in test output on failure
//	}
package logging
