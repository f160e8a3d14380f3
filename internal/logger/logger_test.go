package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter_Level(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(buf, "warn")

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestNewWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "loud")
	if l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level=%v want info", l.GetLevel())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf, "debug"))

	l := FromContext(ctx)
	l.Debug().Str("account_no", "ACC1").Msg("posted")

	if !strings.Contains(buf.String(), `"account_no":"ACC1"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestFromContext_Global(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := Global()
	SetGlobal(NewWithWriter(buf, "info"))
	defer SetGlobal(prev)

	l := FromContext(context.Background())
	l.Info().Msg("fallback")
	if !strings.Contains(buf.String(), "fallback") {
		t.Errorf("global logger not used: %s", buf.String())
	}
}
