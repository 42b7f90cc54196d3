package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/engine/types"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// stubService records control calls and serves a fixed list.
type stubService struct {
	mu      sync.Mutex
	calls   []string
	added   []types.TaskDescriptor
	list    []types.DownloadStatus
	events  chan any
	started int
}

func newStubService() *stubService {
	return &stubService{events: make(chan any, 16)}
}

func (s *stubService) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *stubService) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubService) List() ([]types.DownloadStatus, error) { return s.list, nil }
func (s *stubService) GetStatus(id string) (*types.DownloadStatus, error) {
	return nil, core.ErrNotFound
}
func (s *stubService) History() ([]types.HistoryEntry, error) { return nil, nil }
func (s *stubService) SearchHistory(string) ([]types.HistoryEntry, error) { return nil, nil }
func (s *stubService) ClearHistory() error { return nil }
func (s *stubService) Schedules() ([]types.ScheduleEntry, error) { return nil, nil }
func (s *stubService) Unschedule(string) error { return nil }
func (s *stubService) RetryFailed() ([]string, error) { return nil, nil }
func (s *stubService) SetMaxConcurrent(int) error { return nil }
func (s *stubService) Shutdown() error { return nil }
func (s *stubService) Schedule(time.Time, types.TaskDescriptor) (*types.ScheduleEntry, error) {
	return nil, nil
}

func (s *stubService) Add(desc types.TaskDescriptor) (string, error) {
	s.mu.Lock()
	s.added = append(s.added, desc)
	s.mu.Unlock()
	s.record("add")
	return "0123456789abcdef", nil
}

func (s *stubService) Pause(id string) error { s.record("pause " + id); return nil }
func (s *stubService) Resume(id string) error { s.record("resume " + id); return nil }
func (s *stubService) Cancel(id string) error {
	if id == "missing" {
		return core.ErrNotFound
	}
	s.record("cancel " + id)
	return nil
}
func (s *stubService) PauseAll() error { s.record("pause-all"); return nil }
func (s *stubService) ResumeAll() error { s.record("resume-all"); return nil }
func (s *stubService) CancelAll() error { s.record("cancel-all"); return nil }
func (s *stubService) StartQueue() (int, error) {
	s.record("start")
	return s.started, nil
}

func (s *stubService) StreamEvents(ctx context.Context) (<-chan any, func(), error) {
	return s.events, func() {}, nil
}

func newTestModel(t *testing.T, svc *stubService) RootModel {
	t.Helper()
	defaults := func() types.TaskDescriptor {
		return types.TaskDescriptor{Destination: "/tmp/videos", Resolution: types.DefaultResolution, OutputFormat: types.DefaultOutputFormat}
	}
	m, err := InitialRootModel(context.Background(), svc, defaults, "test")
	require.NoError(t, err)
	m.width, m.height = 140, 45
	return m
}
