package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_Clean_RemovesNullBytes(t *testing.T) {
	t.Parallel()
	got := Clean("hello\x00world")
	if strings.ContainsRune(got, 0) {
		t.Errorf("null byte survived cleaning: %q", got)
	}
	if got != "helloworld" {
		t.Errorf("Clean = %q, want %q", got, "helloworld")
	}
}

func Test_Clean_CollapsesSoftWraps(t *testing.T) {
	t.Parallel()
	// A lone newline is a soft line wrap and becomes a space.
	got := Clean("first line\nsecond line")
	if got != "first line second line" {
		t.Errorf("Clean = %q", got)
	}
}

func Test_Clean_PreservesParagraphBreaks(t *testing.T) {
	t.Parallel()
	got := Clean("para one\n\npara two")
	if got != "para one\n\npara two" {
		t.Errorf("Clean = %q", got)
	}
}

func Test_Clean_CollapsesBlankRuns(t *testing.T) {
	t.Parallel()
	got := Clean("para one\n\n\n\n\npara two")
	if got != "para one\n\npara two" {
		t.Errorf("Clean = %q", got)
	}
}

func Test_Clean_CollapsesSpaceRuns(t *testing.T) {
	t.Parallel()
	got := Clean("too    many \t spaces")
	if got != "too many spaces" {
		t.Errorf("Clean = %q", got)
	}
}

func Test_Clean_TrimsLines(t *testing.T) {
	t.Parallel()
	got := Clean("  indented\n\n  also indented  ")
	if got != "indented\n\nalso indented" {
		t.Errorf("Clean = %q", got)
	}
}

func Test_Clean_Empty(t *testing.T) {
	t.Parallel()
	if got := Clean(""); got != "" {
		t.Errorf("Clean(\"\") = %q", got)
	}
	if got := Clean("   \n\n  "); got != "" {
		t.Errorf("Clean(whitespace) = %q", got)
	}
}

func Test_Extract_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Extract(context.Background(), "/nonexistent/file.pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func Test_Extract_NotAPDF(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Extract(context.Background(), path)
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}
