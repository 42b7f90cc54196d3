package core

import (
	"context"
	"errors"
	"time"

	"github.com/tubeq/tubeq/internal/engine/types"
)

// ErrNotFound is returned when an id matches no download or schedule entry.
var ErrNotFound = errors.New("not found")

// DownloadService defines the interface for interacting with the download engine.
// This abstraction allows the TUI and CLI to switch between a local embedded
// backend and a remote daemon connection.
type DownloadService interface {
	// List returns the status of every download the queue knows about.
	List() ([]types.DownloadStatus, error)

	// GetStatus returns a status for a single download by id.
	GetStatus(id string) (*types.DownloadStatus, error)

	// History returns the persisted download history, newest first.
	History() ([]types.HistoryEntry, error)

	// SearchHistory fuzzy-matches query against title, channel and URL.
	SearchHistory(query string) ([]types.HistoryEntry, error)

	// ClearHistory removes every history entry.
	ClearHistory() error

	// Add validates and queues a new download.
	Add(desc types.TaskDescriptor) (string, error)

	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error

	// PauseAll, ResumeAll and CancelAll act on active downloads only.
	PauseAll() error
	ResumeAll() error
	CancelAll() error

	// StartQueue promotes queued downloads up to the concurrency limit.
	StartQueue() (int, error)

	// SetMaxConcurrent changes the concurrency limit without preempting.
	SetMaxConcurrent(n int) error

	// Schedule registers desc to be queued at triggerAt.
	Schedule(triggerAt time.Time, desc types.TaskDescriptor) (*types.ScheduleEntry, error)
	Schedules() ([]types.ScheduleEntry, error)
	Unschedule(id string) error

	// RetryFailed re-queues every history entry whose last status was an
	// error and returns the new download ids.
	RetryFailed() ([]string, error)

	// StreamEvents returns a channel that receives real-time download events.
	// For local mode, this is a direct channel.
	// For remote mode, this is sourced from SSE.
	StreamEvents(ctx context.Context) (<-chan any, func(), error)

	// Shutdown handles graceful shutdown of the service
	Shutdown() error
}
