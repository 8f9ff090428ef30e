package logging

import (
	"bytes"
	"os"
	"testing"
)

func TestSupportsColor(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		isTTY bool
		want  bool
	}{
		{"tty without overrides", map[string]string{}, true, true},
		{"NO_COLOR prevents color", map[string]string{"NO_COLOR": "1"}, true, false},
		{"TERM=dumb prevents color", map[string]string{"TERM": "dumb"}, true, false},
		{"non-TTY prevents color", map[string]string{}, false, false},
		{"FORCE_COLOR on non-TTY", map[string]string{"FORCE_COLOR": "1"}, false, true},
		{"FORCE_COLOR=0 is ignored", map[string]string{"FORCE_COLOR": "0"}, false, false},
		{"NO_COLOR beats FORCE_COLOR", map[string]string{"NO_COLOR": "", "FORCE_COLOR": "1"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "TERM", "FORCE_COLOR"} {
				t.Setenv(k, "")
				os.Unsetenv(k)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if got := supportsColor(tt.isTTY); got != tt.want {
				t.Errorf("supportsColor(%v) = %v, want %v (env=%v)", tt.isTTY, got, tt.want, tt.env)
			}
		})
	}
}

func TestIsTTY_NonFile(t *testing.T) {
	if IsTTY(&bytes.Buffer{}) {
		t.Error("IsTTY should return false for a buffer")
	}
}
