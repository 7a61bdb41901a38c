package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestInitFallsBackToInfo(t *testing.T) {
	l, err := Init("nonsense", "prod", "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer l.Closer()

	if l.Level.Level() != zap.InfoLevel {
		t.Fatalf("level = %s", l.Level.Level())
	}
}

func TestInitDevDebug(t *testing.T) {
	l, err := Init("DEBUG", "dev", "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer l.Closer()

	if !l.Base.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug must be enabled")
	}
	if l.Component("trips") == nil {
		t.Fatal("nil component logger")
	}
}

func TestLevelChangesAtRuntime(t *testing.T) {
	l, err := Init("info", "prod", "1.2.0")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer l.Closer()

	if l.Base.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug must be off at info")
	}
	l.Level.SetLevel(zap.DebugLevel)
	if !l.Base.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug must be on after SetLevel")
	}
}
