package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.Level(-2)},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		log, err := New(tt.level)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.level, err)
		}
		if !log.Core().Enabled(tt.enabled) || log.Core().Enabled(tt.muted) {
			t.Errorf("New(%q): wrong level", tt.level)
		}
	}
}

func TestNewConsoleLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"", zapcore.WarnLevel, zapcore.InfoLevel},
		{"nonsense", zapcore.WarnLevel, zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel, zapcore.Level(-2)},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		log, err := NewConsole(tt.level)
		if err != nil {
			t.Fatalf("NewConsole(%q): %v", tt.level, err)
		}
		if !log.Core().Enabled(tt.enabled) || log.Core().Enabled(tt.muted) {
			t.Errorf("NewConsole(%q): wrong level", tt.level)
		}
	}
}
