package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitWithOutput(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"defaults", "", "", logrus.InfoLevel, false},
		{"debug text", "debug", "text", logrus.DebugLevel, false},
		{"json", "warn", "json", logrus.WarnLevel, true},
		{"bad level falls back", "loud", "", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			t.Setenv("LOG_FORMAT", tt.format)

			var buf bytes.Buffer
			InitWithOutput(&buf)

			if Log.GetLevel() != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, Log.GetLevel())
			}

			Component("test").Warn("hello")
			out := buf.String()
			if tt.wantJSON && !strings.HasPrefix(out, "{") {
				t.Errorf("Expected JSON output, got %q", out)
			}
			if !strings.Contains(out, "test") {
				t.Errorf("Expected component field in output, got %q", out)
			}
		})
	}
}
