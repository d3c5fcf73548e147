package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	l, err := New("debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be enabled")
	}

	l, err = New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) || !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("default level should be info")
	}

	if _, err := New("loud"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}

func TestNamedNilBase(t *testing.T) {
	if Named(nil, "svc") == nil {
		t.Fatalf("Named must never return nil")
	}
}
