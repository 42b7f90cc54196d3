// Package clipboard watches the system clipboard and queues copied links.
package clipboard

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/tubeq/tubeq/internal/utils"
)

// DefaultInterval is how often the clipboard is polled.
const DefaultInterval = time.Second

// Monitor polls the clipboard and hands each newly copied URL to Submit.
type Monitor struct {
	Interval time.Duration
	Read     func() (string, error)
	Submit   func(url string) error

	last string
}

// NewMonitor returns a monitor reading the system clipboard.
func NewMonitor(submit func(url string) error) *Monitor {
	return &Monitor{
		Interval: DefaultInterval,
		Read:     clipboard.ReadAll,
		Submit:   submit,
	}
}

// Supported reports whether a clipboard backend is available.
func Supported() bool {
	return !clipboard.Unsupported
}

// Run polls until ctx is cancelled. Whatever is on the clipboard when Run
// starts is treated as already seen.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if text, err := m.Read(); err == nil {
		m.last = text
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check reads the clipboard once and submits any URLs in new content. It
// returns how many were submitted.
func (m *Monitor) Check() int {
	text, err := m.Read()
	if err != nil {
		return 0
	}
	text = strings.TrimSpace(text)
	if text == "" || text == m.last {
		return 0
	}
	m.last = text

	n := 0
	for _, u := range utils.ExtractURLs(text) {
		if err := m.Submit(u); err != nil {
			utils.Debug("Clipboard: failed to queue %s: %v", u, err)
			continue
		}
		utils.Debug("Clipboard: queued %s", u)
		n++
	}
	return n
}
