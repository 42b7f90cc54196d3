package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kataras/golog"
)

var (
	logger  = newLogger(io.Discard)
	logFile *os.File
	logMu   sync.Mutex
)

func newLogger(w io.Writer) *golog.Logger {
	l := golog.New()
	l.SetOutput(w)
	l.SetTimeFormat("2006-01-02 15:04:05")
	l.SetLevel("debug")
	return l
}

// ConfigureDebug starts writing debug lines to a fresh timestamped file in
// dir. Until it is called, Debug output is discarded.
func ConfigureDebug(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	logger = newLogger(f)
	return nil
}

// SetDebugOutput redirects debug lines to w.
func SetDebugOutput(w io.Writer) {
	logMu.Lock()
	logger = newLogger(w)
	logMu.Unlock()
}

// Debug writes a message to the debug log
func Debug(format string, args ...any) {
	logMu.Lock()
	l := logger
	logMu.Unlock()
	l.Debugf(format, args...)
}

// CleanupLogs keeps only the newest retention debug logs in dir.
func CleanupLogs(dir string, retention int) {
	if retention <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "debug-") && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= retention {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-retention] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			Debug("Failed to remove old log %s: %v", name, err)
		}
	}
}
