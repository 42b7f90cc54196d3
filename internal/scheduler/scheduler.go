package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tubeq/tubeq/internal/engine"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

var ErrNotFound = errors.New("schedule entry not found")

// Submitter accepts due tasks. The worker pool satisfies it.
type Submitter interface {
	Submit(desc types.TaskDescriptor) (string, error)
}

// Store persists schedule entries across restarts.
type Store interface {
	SaveSchedule(entry types.ScheduleEntry) error
	DeleteSchedule(id string) error
	LoadSchedules() ([]types.ScheduleEntry, error)
}

// Scheduler keeps time-triggered submissions and fires them from a polling
// loop.
type Scheduler struct {
	submitter Submitter
	store     Store
	interval  time.Duration
	now       func() time.Time
	eventCh   chan<- any

	mu      sync.Mutex
	entries map[string]*types.ScheduleEntry
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStore persists entries through s.
func WithStore(s Store) Option {
	return func(sc *Scheduler) { sc.store = s }
}

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(sc *Scheduler) {
		if d > 0 {
			sc.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(sc *Scheduler) { sc.now = now }
}

// WithEvents reports fired entries and log lines on ch.
func WithEvents(ch chan<- any) Option {
	return func(sc *Scheduler) { sc.eventCh = ch }
}

// New creates a scheduler that submits due entries to submitter.
func New(submitter Submitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		submitter: submitter,
		interval:  types.DefaultSchedulerInterval,
		now:       time.Now,
		entries:   make(map[string]*types.ScheduleEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) send(msg any) {
	if s.eventCh != nil {
		s.eventCh <- msg
	}
}

func (s *Scheduler) persist(entry types.ScheduleEntry) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSchedule(entry); err != nil {
		utils.Debug("Failed to save schedule %s: %v", utils.ShortID(entry.ID), err)
	}
}

// Load restores persisted entries. Existing in-memory entries with the same
// id are replaced.
func (s *Scheduler) Load() error {
	if s.store == nil {
		return nil
	}
	entries, err := s.store.LoadSchedules()
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		e := entries[i]
		s.entries[e.ID] = &e
	}
	utils.Debug("Loaded %d schedule entries", len(entries))
	return nil
}

// Add schedules desc to be submitted at triggerAt. The recurrence is taken
// from the descriptor.
func (s *Scheduler) Add(triggerAt time.Time, desc types.TaskDescriptor) (types.ScheduleEntry, error) {
	if err := engine.ValidateDescriptor(desc); err != nil {
		return types.ScheduleEntry{}, err
	}
	if desc.Recurrence == "" {
		desc.Recurrence = types.RecurrenceNone
	}

	entry := types.ScheduleEntry{
		ID:         uuid.New().String(),
		TriggerAt:  triggerAt.Unix(),
		Task:       desc,
		Recurrence: desc.Recurrence,
		Status:     types.ScheduleScheduled,
	}

	s.mu.Lock()
	e := entry
	s.entries[entry.ID] = &e
	s.mu.Unlock()

	s.persist(entry)
	utils.Debug("Scheduled %s at %s (%s)", desc.URL, triggerAt.Format(time.RFC3339), entry.Recurrence)
	return entry, nil
}

// Remove deletes an entry.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if s.store != nil {
		if err := s.store.DeleteSchedule(id); err != nil {
			return err
		}
	}
	return nil
}

// List returns all entries ordered by trigger time.
func (s *Scheduler) List() []types.ScheduleEntry {
	s.mu.Lock()
	out := make([]types.ScheduleEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggerAt == out[j].TriggerAt {
			return out[i].ID < out[j].ID
		}
		return out[i].TriggerAt < out[j].TriggerAt
	})
	return out
}

// Poll submits every Scheduled entry whose trigger time is not after now and
// returns how many were fired. Recurring entries are re-armed one period
// after their previous trigger time; one-shot entries stay Started.
func (s *Scheduler) Poll(now time.Time) int {
	s.mu.Lock()
	var due []types.ScheduleEntry
	for _, e := range s.entries {
		if e.Status == types.ScheduleScheduled && e.TriggerAt <= now.Unix() {
			e.Status = types.ScheduleStarted
			due = append(due, *e)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].TriggerAt < due[j].TriggerAt })

	for _, entry := range due {
		taskID, err := s.submitter.Submit(entry.Task)
		fired := events.ScheduleFiredMsg{ScheduleID: entry.ID, DownloadID: taskID, URL: entry.Task.URL}
		if err != nil {
			utils.Debug("Scheduled submission of %s failed: %v", entry.Task.URL, err)
			fired.Err = err.Error()
			s.send(events.LogMsg{Message: fmt.Sprintf("Scheduled download failed to start: %s: %v", entry.Task.URL, err), Time: now})
		} else {
			s.send(events.LogMsg{DownloadID: taskID, Message: "Scheduled download started: " + entry.Task.URL, Time: now})
		}
		s.send(fired)

		updated, ok := s.rearm(entry.ID, taskID)
		if ok {
			s.persist(updated)
		}
	}
	return len(due)
}

// rearm records the submitted task id and, for recurring entries, moves the
// trigger forward and resets the status.
func (s *Scheduler) rearm(id, taskID string) (types.ScheduleEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		// Removed while its task was being submitted.
		return types.ScheduleEntry{}, false
	}
	e.LastTaskID = taskID
	if next, recurring := Next(time.Unix(e.TriggerAt, 0), e.Recurrence); recurring {
		e.TriggerAt = next.Unix()
		e.Status = types.ScheduleScheduled
	}
	return *e, true
}

// Run polls on the configured interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Poll(s.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(s.now())
		}
	}
}
