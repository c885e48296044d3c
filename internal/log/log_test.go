package log

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, "console")
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %q: expected %s enabled", tt.level, tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %q: expected %s disabled", tt.level, tt.want-1)
			}
		})
	}
}

func TestInitReplacesGlobal(t *testing.T) {
	l := Init("warn", "json")
	if L() != l {
		t.Error("L() should return the logger installed by Init")
	}
	if L().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled after Init(warn)")
	}
	Init("info", "")
}
