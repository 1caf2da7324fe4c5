package shared

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  log.Level
	}{
		{name: "empty defaults to info", input: "", want: log.InfoLevel},
		{name: "debug", input: "debug", want: log.DebugLevel},
		{name: "warn", input: "warn", want: log.WarnLevel},
		{name: "unknown defaults to info", input: "verbose", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "service", "youtube").Info("synced")

		out := buf.String()
		if !strings.Contains(out, "synced") || !strings.Contains(out, "service=youtube") {
			t.Errorf("unexpected log output: %s", out)
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "multitune.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
		logger.Info("hello")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a, b)
	}
}

func TestErrors(t *testing.T) {
	t.Run("StoreError matches sentinel and cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := fmt.Errorf("upsert: %w", NewStoreError("upsert playlist", cause))

		if !errors.Is(err, ErrStore) {
			t.Error("expected errors.Is(err, ErrStore)")
		}
		if !errors.Is(err, cause) {
			t.Error("expected errors.Is(err, cause)")
		}

		var se *StoreError
		if !errors.As(err, &se) || se.Op != "upsert playlist" {
			t.Errorf("expected StoreError with op, got %v", se)
		}
	})

	t.Run("NewStoreError with nil", func(t *testing.T) {
		if NewStoreError("noop", nil) != nil {
			t.Error("expected nil")
		}
	})

	t.Run("AuthExpiredError without cause", func(t *testing.T) {
		err := &AuthExpiredError{Service: "spotify"}
		if !errors.Is(err, ErrAuthExpired) {
			t.Error("expected errors.Is(err, ErrAuthExpired)")
		}
		if !strings.Contains(err.Error(), "spotify") {
			t.Errorf("unexpected message: %s", err)
		}
	})

	t.Run("ProviderError keeps payload", func(t *testing.T) {
		err := &ProviderError{Service: "youtube", Status: 403, Payload: []byte(`{"error":"quota"}`)}
		if !errors.Is(err, ErrProvider) {
			t.Error("expected errors.Is(err, ErrProvider)")
		}
		if !strings.Contains(err.Error(), "403") {
			t.Errorf("expected status in message, got %s", err)
		}
	})

	t.Run("RefreshError", func(t *testing.T) {
		err := &RefreshError{Service: "youtube", Err: errors.New("invalid_grant")}
		if !errors.Is(err, ErrRefreshFailed) {
			t.Error("expected errors.Is(err, ErrRefreshFailed)")
		}
	})
}
