package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"unknown": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWithOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	logger.Info().Str("ticker", "BHP.AU").Msg("quote fetched")
	logger.Debug().Msg("suppressed at info level")

	out := buf.String()
	if !strings.Contains(out, "quote fetched") {
		t.Errorf("info message missing from output: %s", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Errorf("debug message leaked at info level: %s", out)
	}
}

func TestNewSilentLogger(t *testing.T) {
	logger := NewSilentLogger()
	// Must not panic and must discard everything
	logger.Error().Msg("nothing to see")
}
