package logger

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewIsNop(t *testing.T) {
	l := New()
	if l.Log == nil {
		t.Fatal("Log must not be nil before Init")
	}
	l.Log.Info("discarded")
}

func TestInit(t *testing.T) {
	l := New()
	if err := l.Init("Info"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if !l.Log.Core().Enabled(zap.InfoLevel) {
		t.Error("expected info level to be enabled")
	}
	if l.Log.Core().Enabled(zap.DebugLevel) {
		t.Error("expected debug level to be disabled")
	}
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	err := l.Init("loud")
	if err == nil || !strings.Contains(err.Error(), "parse log level") {
		t.Fatalf("Init error = %v; want parse failure", err)
	}
}

func TestInitWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	if err := l.InitWriter("warn", &buf); err != nil {
		t.Fatalf("InitWriter returned error: %v", err)
	}

	l.Log.Info("hidden")
	l.Log.Warn("shown", zap.String("user", "alice"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry should be filtered, got %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"user":"alice"`) {
		t.Errorf("expected warn entry with fields, got %s", out)
	}
}
