package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"500K", 500 * 1024, false},
		{"2m", 2 * 1024 * 1024, false},
		{"1G", 1024 * 1024 * 1024, false},
		{"1.5M", 1572864, false},
		{"500", 0, true},
		{"fast", 0, true},
		{"0K", 0, true},
		{"-1K", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRate(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatSpeed(0); got != "-" {
		t.Errorf("FormatSpeed(0) = %q", got)
	}
	if got := FormatSpeed(2048); got != "2.0 KiB/s" {
		t.Errorf("FormatSpeed(2048) = %q", got)
	}
	if got := FormatETA(90); got != "1m30s" {
		t.Errorf("FormatETA(90) = %q", got)
	}
	if got := FormatETA(0); got != "-" {
		t.Errorf("FormatETA(0) = %q", got)
	}
	if got := ShortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(short) = %q", got)
	}
	if got := Truncate("hello world", 6); got != "hello…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("hi", 6); got != "hi" {
		t.Errorf("Truncate(short) = %q", got)
	}
}

func TestDetectMediaType(t *testing.T) {
	dir := t.TempDir()

	// Minimal MP4 header: size + "ftyp" + brand "isom".
	mp4 := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2'}
	mp4Path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(mp4Path, mp4, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectMediaType(mp4Path); got != "video/mp4" {
		t.Errorf("DetectMediaType(mp4) = %q, want video/mp4", got)
	}

	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectMediaType(txtPath); got != "" {
		t.Errorf("DetectMediaType(txt) = %q, want empty", got)
	}

	if got := DetectMediaType(filepath.Join(dir, "missing")); got != "" {
		t.Errorf("DetectMediaType(missing) = %q, want empty", got)
	}
}

func TestDebugAndCleanupLogs(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	SetDebugOutput(&sb)
	Debug("hello %s", "world")
	if !strings.Contains(sb.String(), "hello world") {
		t.Errorf("debug output = %q", sb.String())
	}

	names := []string{"debug-20240101-000000.log", "debug-20240102-000000.log", "debug-20240103-000000.log", "other.txt"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	CleanupLogs(dir, 2)

	entries, _ := os.ReadDir(dir)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	if len(left) != 3 {
		t.Fatalf("left = %v, want 3 files", left)
	}
	if _, err := os.Stat(filepath.Join(dir, names[0])); !os.IsNotExist(err) {
		t.Error("oldest log should have been removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "other.txt")); err != nil {
		t.Error("unrelated files must be kept")
	}
	SetDebugOutput(io.Discard)
}
