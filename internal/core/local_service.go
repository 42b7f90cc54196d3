package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tubeq/tubeq/internal/download"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/state"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/scheduler"
	"github.com/tubeq/tubeq/internal/utils"
)

const listenerBuffer = 100

type listener struct {
	ch   chan any
	done chan struct{}
	once sync.Once
}

// LocalDownloadService implements DownloadService over an in-process pool.
// It owns the pool's event channel: every event is recorded to history (when
// enabled) and fanned out to StreamEvents subscribers.
type LocalDownloadService struct {
	Pool      *download.WorkerPool
	Scheduler *scheduler.Scheduler

	input <-chan any

	listenersMu sync.RWMutex
	listeners   []*listener

	historyEnabled atomic.Bool
	defaultsMu     sync.RWMutex
	defaults       types.TaskDescriptor

	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

// NewLocalDownloadService starts consuming input, which must be the channel
// the pool and scheduler publish to.
func NewLocalDownloadService(pool *download.WorkerPool, sched *scheduler.Scheduler, input <-chan any, historyEnabled bool) *LocalDownloadService {
	s := &LocalDownloadService{
		Pool:      pool,
		Scheduler: sched,
		input:     input,
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		defaults: types.TaskDescriptor{
			Resolution:   types.DefaultResolution,
			OutputFormat: types.DefaultOutputFormat,
			Priority:     types.DefaultPriority,
			Recurrence:   types.RecurrenceNone,
		},
	}
	s.historyEnabled.Store(historyEnabled)
	go s.broadcastLoop()
	return s
}

// SetHistoryEnabled toggles history recording.
func (s *LocalDownloadService) SetHistoryEnabled(enabled bool) {
	if s.historyEnabled.Swap(enabled) == enabled {
		return
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	s.broadcast(events.LogMsg{Message: "History logging " + status + ".", Time: time.Now()})
}

// SetDefaults sets the descriptor used for retries.
func (s *LocalDownloadService) SetDefaults(desc types.TaskDescriptor) {
	s.defaultsMu.Lock()
	s.defaults = desc
	s.defaultsMu.Unlock()
}

func (s *LocalDownloadService) broadcastLoop() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-s.input:
			if !ok {
				return
			}
			s.record(msg)
			s.broadcast(msg)
		}
	}
}

// broadcast delivers msg to every subscriber. Progress samples are dropped
// for a subscriber whose buffer is full; other events wait for it.
func (s *LocalDownloadService) broadcast(msg any) {
	_, isProgress := msg.(events.ProgressMsg)

	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		if isProgress {
			select {
			case l.ch <- msg:
			default:
			}
			continue
		}
		select {
		case l.ch <- msg:
		case <-l.done:
		case <-s.stop:
		}
	}
}

// record folds an event into the history table.
func (s *LocalDownloadService) record(msg any) {
	if !s.historyEnabled.Load() {
		return
	}

	var entry types.HistoryEntry
	switch m := msg.(type) {
	case events.DownloadQueuedMsg:
		entry = types.HistoryEntry{ID: m.DownloadID, URL: m.URL, Status: types.StatusQueued}
		if st, err := s.Pool.GetStatus(m.DownloadID); err == nil {
			entry.Destination = st.Task.Destination
		}
	case events.DownloadInfoMsg:
		entry = types.HistoryEntry{ID: m.DownloadID, Title: m.Title, Channel: m.Channel}
	case events.DownloadStatusMsg:
		entry = types.HistoryEntry{ID: m.DownloadID, Status: m.Status}
	case events.DownloadCompleteMsg:
		entry = types.HistoryEntry{ID: m.DownloadID, OutputPath: m.OutputPath, MediaType: m.MediaType}
	case events.DownloadErrorMsg:
		entry = types.HistoryEntry{ID: m.DownloadID}
		if m.Err != nil {
			entry.Error = m.Err.Error()
		}
	default:
		return
	}
	entry.UpdatedAt = time.Now().Unix()
	if err := state.UpsertHistory(entry); err != nil {
		utils.Debug("Failed to record history for %s: %v", utils.ShortID(entry.ID), err)
	}
}

func (s *LocalDownloadService) List() ([]types.DownloadStatus, error) {
	return s.Pool.GetAll(), nil
}

func (s *LocalDownloadService) GetStatus(id string) (*types.DownloadStatus, error) {
	st, err := s.Pool.GetStatus(id)
	if errors.Is(err, download.ErrNotFound) {
		return nil, ErrNotFound
	}
	return st, err
}

func (s *LocalDownloadService) History() ([]types.HistoryEntry, error) {
	return state.ListHistory()
}

func (s *LocalDownloadService) SearchHistory(query string) ([]types.HistoryEntry, error) {
	return state.SearchHistory(query)
}

func (s *LocalDownloadService) ClearHistory() error {
	if err := state.ClearHistory(); err != nil {
		return err
	}
	s.broadcast(events.LogMsg{Message: "All history deleted.", Time: time.Now()})
	return nil
}

func (s *LocalDownloadService) Add(desc types.TaskDescriptor) (string, error) {
	return s.Pool.Submit(desc)
}

func mapPoolErr(err error) error {
	if errors.Is(err, download.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *LocalDownloadService) Pause(id string) error  { return mapPoolErr(s.Pool.Pause(id)) }
func (s *LocalDownloadService) Resume(id string) error { return mapPoolErr(s.Pool.Resume(id)) }
func (s *LocalDownloadService) Cancel(id string) error { return mapPoolErr(s.Pool.Cancel(id)) }

func (s *LocalDownloadService) PauseAll() error {
	s.Pool.PauseAll()
	return nil
}

func (s *LocalDownloadService) ResumeAll() error {
	s.Pool.ResumeAll()
	return nil
}

func (s *LocalDownloadService) CancelAll() error {
	s.Pool.CancelAll()
	return nil
}

func (s *LocalDownloadService) StartQueue() (int, error) {
	return s.Pool.StartBacklog(), nil
}

func (s *LocalDownloadService) SetMaxConcurrent(n int) error {
	if n < types.MinMaxConcurrent || n > types.MaxMaxConcurrent {
		return fmt.Errorf("concurrency must be between %d and %d", types.MinMaxConcurrent, types.MaxMaxConcurrent)
	}
	s.Pool.SetMaxConcurrent(n)
	s.broadcast(events.LogMsg{Message: fmt.Sprintf("Max concurrent downloads set to %d", n), Time: time.Now()})
	return nil
}

func (s *LocalDownloadService) Schedule(triggerAt time.Time, desc types.TaskDescriptor) (*types.ScheduleEntry, error) {
	if s.Scheduler == nil {
		return nil, errors.New("scheduler not running")
	}
	entry, err := s.Scheduler.Add(triggerAt, desc)
	if err != nil {
		return nil, err
	}
	s.broadcast(events.LogMsg{
		Message: fmt.Sprintf("Scheduled %s at %s", desc.URL, triggerAt.Format("2006-01-02 15:04")),
		Time:    time.Now(),
	})
	return &entry, nil
}

func (s *LocalDownloadService) Schedules() ([]types.ScheduleEntry, error) {
	if s.Scheduler == nil {
		return nil, nil
	}
	return s.Scheduler.List(), nil
}

func (s *LocalDownloadService) Unschedule(id string) error {
	if s.Scheduler == nil {
		return ErrNotFound
	}
	err := s.Scheduler.Remove(id)
	if errors.Is(err, scheduler.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *LocalDownloadService) RetryFailed() ([]string, error) {
	failed, err := state.FailedHistory()
	if err != nil {
		return nil, err
	}

	s.defaultsMu.RLock()
	base := s.defaults
	s.defaultsMu.RUnlock()

	var ids []string
	for _, e := range failed {
		desc := base
		desc.URL = e.URL
		if e.Destination != "" {
			desc.Destination = e.Destination
		}
		id, err := s.Pool.Submit(desc)
		if err != nil {
			utils.Debug("Retry of %s failed: %v", e.URL, err)
			continue
		}
		ids = append(ids, id)
	}
	s.broadcast(events.LogMsg{Message: fmt.Sprintf("%d failed downloads retried.", len(ids)), Time: time.Now()})
	return ids, nil
}

// StreamEvents subscribes to the event stream. The returned cleanup function
// unsubscribes and closes the channel; cancelling ctx does the same.
func (s *LocalDownloadService) StreamEvents(ctx context.Context) (<-chan any, func(), error) {
	l := &listener{ch: make(chan any, listenerBuffer), done: make(chan struct{})}

	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()

	cleanup := func() { s.unsubscribe(l) }
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cleanup()
			case <-l.done:
			}
		}()
	}
	return l.ch, cleanup, nil
}

func (s *LocalDownloadService) unsubscribe(l *listener) {
	l.once.Do(func() {
		close(l.done)

		s.listenersMu.Lock()
		for i, other := range s.listeners {
			if other == l {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				break
			}
		}
		s.listenersMu.Unlock()

		close(l.ch)
	})
}

// Shutdown cancels all downloads, waits for the workers and closes every
// subscriber channel.
func (s *LocalDownloadService) Shutdown() error {
	s.Pool.GracefulShutdown()
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.loopDone

	s.listenersMu.RLock()
	remaining := append([]*listener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, l := range remaining {
		s.unsubscribe(l)
	}
	return nil
}
