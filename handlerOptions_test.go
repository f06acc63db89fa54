package gelf

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestHandler_SourceOption(t *testing.T) {
	s := &testSink{}
	h := NewHandlerCustom(s, nil)

	// check config
	if h.AddSource {
		t.Fatal("expected default for `AddSource` to be false")
	}

	// check results
	l := slog.New(h)
	l.Info("test-msg", "k", "v")
	if _, ok := s.last(t).d.Fields["file"]; ok {
		t.Fatal("expected default NOT to include source info")
	}

	// new handler with option enabled
	h = NewHandlerCustom(s, &HandlerOptions{AddSource: true})

	// check config
	if !h.AddSource {
		t.Fatal("expected `AddSource` to be true")
	}

	// check results
	l = slog.New(h)
	l.Info("test-msg", "k", "v")
	fields := s.last(t).d.Fields
	if file, ok := fields["file"].(string); !ok || len(file) == 0 {
		t.Fatalf("missing source file, got: %v", fields["file"])
	}
	if line, ok := fields["line"].(int); !ok || line <= 0 {
		t.Fatalf("missing source line, got: %v", fields["line"])
	}
}

func TestHandler_LogLevelOption(t *testing.T) {
	s := &testSink{}
	h := NewHandlerCustom(s, nil)
	ctx := context.Background()

	// check config
	if h.Level.Level() != slog.LevelInfo {
		t.Fatalf("expected default level to be INFO, got: %s", h.Level.Level())
	}
	if h.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("expected DEBUG to be disabled by default")
	}

	// check results
	l := slog.New(h)
	l.Debug("dropped")
	if len(s.calls) != 0 {
		t.Fatalf("expected DEBUG record to be dropped, got: %d calls", len(s.calls))
	}

	// dynamic level
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelError)
	l = slog.New(NewHandlerCustom(s, &HandlerOptions{Level: lv}))
	l.Warn("dropped")
	if len(s.calls) != 0 {
		t.Fatalf("expected WARN record to be dropped, got: %d calls", len(s.calls))
	}

	lv.Set(slog.LevelWarn)
	l.Warn("kept")
	if len(s.calls) != 1 {
		t.Fatalf("expected WARN record to be kept, got: %d calls", len(s.calls))
	}
}

func TestHandler_TimeFormatOption(t *testing.T) {
	ts := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		format string
		expect string
	}{
		{"default time format", "", ts.Format(time.RFC3339Nano)},
		{"custom time format", time.Kitchen, "12:00PM"},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			s := &testSink{}
			l := slog.New(NewHandlerCustom(s, &HandlerOptions{TimeFormat: tt.format}))
			l.Info("test-msg", "at", ts)

			if got := s.last(t).d.Fields["at"]; got != tt.expect {
				t.Errorf("failed: %s, expected: %s, got: %v", tt.name, tt.expect, got)
			}
		})
	}
}

func TestHandlerOptions_resolve(t *testing.T) {
	opts := &HandlerOptions{}
	opts.resolve()

	if opts.Level == nil || opts.Level.Level() != slog.LevelInfo {
		t.Errorf("expected nil Level to be coerced to INFO, got: %v", opts.Level)
	}
	if opts.TimeFormat != defaultTimeFormat {
		t.Errorf("expected empty TimeFormat to be coerced to %s, got: %s", defaultTimeFormat, opts.TimeFormat)
	}
	if opts.GroupSeparator != defaultGroupSeparator {
		t.Errorf("expected empty GroupSeparator to be coerced to %s, got: %s", defaultGroupSeparator, opts.GroupSeparator)
	}

	opts = &HandlerOptions{GroupSeparator: "."}
	opts.resolve()
	if opts.GroupSeparator != "." {
		t.Errorf("expected custom GroupSeparator to be unchanged, got: %s", opts.GroupSeparator)
	}
}
