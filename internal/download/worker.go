package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tubeq/tubeq/internal/engine"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

// worker drives one task from Pending to a terminal phase. Pause and cancel
// requests arrive from other goroutines; the worker observes them inside the
// executor's progress callback.
type worker struct {
	id       string
	desc     types.TaskDescriptor
	resolver engine.MetadataResolver
	executor engine.Executor
	emit     func(any)

	ctx        context.Context
	cancel     context.CancelFunc
	cancelled  atomic.Bool
	cancelOnce sync.Once

	mu       sync.Mutex
	status   types.DownloadStatus
	paused   bool
	resolved bool
	resumeCh chan struct{} // closed on resume, nil while running
	started  time.Time
}

func newWorker(id string, desc types.TaskDescriptor, resolver engine.MetadataResolver, executor engine.Executor, emit func(any)) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &worker{
		id:       id,
		desc:     desc,
		resolver: resolver,
		executor: executor,
		emit:     emit,
		ctx:      ctx,
		cancel:   cancel,
		status: types.DownloadStatus{
			ID:      id,
			Task:    desc,
			Title:   types.PlaceholderTitle,
			Channel: types.PlaceholderTitle,
			Phase:   types.PhasePending,
			AddedAt: time.Now().Unix(),
		},
	}
}

// snapshot returns a copy of the current status.
func (w *worker) snapshot() types.DownloadStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *worker) phase() types.Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status.Phase
}

// setPhaseLocked applies a transition if it is legal. Caller holds w.mu.
func (w *worker) setPhaseLocked(next types.Phase) bool {
	if !w.status.Phase.CanTransition(next) {
		utils.Debug("Worker %s: ignoring transition %s -> %s", utils.ShortID(w.id), w.status.Phase, next)
		return false
	}
	w.status.Phase = next
	if next.IsTerminal() {
		w.status.CompletedAt = time.Now().Unix()
	}
	return true
}

// label names the task in log lines: its title once known, else the URL.
func (w *worker) labelLocked() string {
	if w.resolved {
		return w.status.Title
	}
	return w.desc.URL
}

// promote moves a pending worker to Resolving. It reports false when the
// task was cancelled while waiting in the backlog.
func (w *worker) promote() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.Phase != types.PhasePending {
		return false
	}
	w.started = time.Now()
	return w.setPhaseLocked(types.PhaseResolving)
}

// cancelPending ends a task that never left the backlog.
func (w *worker) cancelPending() bool {
	w.mu.Lock()
	if !w.setPhaseLocked(types.PhaseCancelled) {
		w.mu.Unlock()
		return false
	}
	url := w.desc.URL
	w.mu.Unlock()

	w.cancelled.Store(true)
	w.cancel()
	w.emit(events.LogMsg{DownloadID: w.id, Message: "Cancelled: " + url, Time: time.Now()})
	w.emit(events.DownloadStatusMsg{DownloadID: w.id, Phase: types.PhaseCancelled, Status: types.StatusCancelled})
	return true
}

// requestCancel flags the worker and cancels its context. A paused worker is
// released at once.
func (w *worker) requestCancel() bool {
	if w.phase().IsTerminal() {
		return false
	}
	w.cancelOnce.Do(func() {
		w.cancelled.Store(true)
		w.cancel()
	})
	return true
}

// pause closes the gate in front of the next progress callback. Pausing
// during resolution takes effect once the worker reaches Downloading.
func (w *worker) pause() bool {
	w.mu.Lock()
	if w.paused || w.cancelled.Load() {
		w.mu.Unlock()
		return false
	}
	switch w.status.Phase {
	case types.PhaseDownloading:
		w.setPhaseLocked(types.PhasePaused)
	case types.PhaseResolving:
	default:
		w.mu.Unlock()
		return false
	}
	w.paused = true
	w.resumeCh = make(chan struct{})
	label := w.labelLocked()
	w.mu.Unlock()

	w.emit(events.LogMsg{DownloadID: w.id, Message: "Paused: " + label, Time: time.Now()})
	w.emit(events.DownloadStatusMsg{DownloadID: w.id, Phase: types.PhasePaused, Status: types.StatusPaused})
	return true
}

// resume reopens the gate.
func (w *worker) resume() bool {
	w.mu.Lock()
	if !w.paused || w.cancelled.Load() {
		w.mu.Unlock()
		return false
	}
	w.paused = false
	close(w.resumeCh)
	w.resumeCh = nil
	next := w.status.Phase
	if next == types.PhasePaused {
		w.setPhaseLocked(types.PhaseDownloading)
		next = types.PhaseDownloading
	}
	label := w.labelLocked()
	w.mu.Unlock()

	w.emit(events.LogMsg{DownloadID: w.id, Message: "Resumed: " + label, Time: time.Now()})
	w.emit(events.DownloadStatusMsg{DownloadID: w.id, Phase: next, Status: types.StatusResumed})
	return true
}

// waitIfPaused blocks while the gate is closed. It returns ErrCancelled if
// the task is cancelled before or during the wait.
func (w *worker) waitIfPaused() error {
	if w.cancelled.Load() {
		return engine.ErrCancelled
	}
	w.mu.Lock()
	gate := w.resumeCh
	w.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-w.ctx.Done():
		}
	}
	if w.cancelled.Load() {
		return engine.ErrCancelled
	}
	return nil
}

// onProgress is handed to the executor.
func (w *worker) onProgress(p engine.Progress) error {
	if err := w.waitIfPaused(); err != nil {
		return err
	}

	percent := 0.0
	if p.Total > 0 {
		percent = float64(p.Downloaded) / float64(p.Total) * 100
	}
	percent = clampPercent(percent)

	w.mu.Lock()
	w.status.Progress = percent
	w.status.Downloaded = p.Downloaded
	w.status.TotalSize = p.Total
	w.status.Speed = p.Speed
	w.status.ETA = p.ETA
	w.mu.Unlock()

	w.emit(events.ProgressMsg{
		DownloadID: w.id,
		Percent:    percent,
		Downloaded: p.Downloaded,
		Total:      p.Total,
		Speed:      p.Speed,
		ETA:        p.ETA,
	})
	return nil
}

func clampPercent(p float64) float64 {
	switch {
	case p != p, p < 0: // NaN or negative
		return 0
	case p > 100:
		return 100
	}
	return p
}

// run executes the task. It must only be called after promote succeeded.
func (w *worker) run() {
	defer w.cancel()

	md, err := engine.Probe(w.ctx, w.resolver, w.desc.URL)
	if w.cancelled.Load() {
		w.finishCancelled()
		return
	}
	if err != nil {
		w.finishFailed(fmt.Sprintf("Failed to fetch info for %s: %v", w.desc.URL, errors.Unwrap(err)), err)
		return
	}

	w.mu.Lock()
	w.resolved = true
	w.status.Title = md.Title
	w.status.Channel = md.Uploader
	if w.paused {
		w.setPhaseLocked(types.PhasePaused)
	} else {
		w.setPhaseLocked(types.PhaseDownloading)
	}
	w.mu.Unlock()

	w.emit(events.DownloadInfoMsg{DownloadID: w.id, Title: md.Title, Channel: md.Uploader})

	if err := w.waitIfPaused(); err != nil {
		w.finishCancelled()
		return
	}

	utils.Debug("Worker %s: downloading %s", utils.ShortID(w.id), w.desc.URL)
	res, err := w.executor.Execute(w.ctx, w.desc.URL, engine.BuildOptions(w.desc), w.onProgress)

	switch {
	case w.cancelled.Load(), errors.Is(err, engine.ErrCancelled):
		w.finishCancelled()
	case err == nil:
		w.finishCompleted(res)
	default:
		w.mu.Lock()
		label := w.labelLocked()
		w.mu.Unlock()
		w.finishFailed(fmt.Sprintf("Error downloading %s: %v", label, err), &engine.ExecutionError{URL: w.desc.URL, Err: err})
	}
}

func (w *worker) finishCompleted(res *engine.Result) {
	outputPath := ""
	if res != nil {
		outputPath = res.OutputPath
	}
	mediaType := utils.DetectMediaType(outputPath)

	w.mu.Lock()
	// A late pause leaves the worker in Paused; completion still wins.
	if w.paused {
		w.paused = false
		close(w.resumeCh)
		w.resumeCh = nil
	}
	w.setPhaseLocked(types.PhaseCompleted)
	w.status.Progress = 100
	w.status.OutputPath = outputPath
	w.status.MediaType = mediaType
	title, channel := w.status.Title, w.status.Channel
	w.mu.Unlock()

	w.emit(events.LogMsg{DownloadID: w.id, Message: fmt.Sprintf("Completed: %s by %s", title, channel), Time: time.Now()})
	w.emit(events.DownloadStatusMsg{DownloadID: w.id, Phase: types.PhaseCompleted, Status: types.StatusCompleted})
	w.emit(events.DownloadCompleteMsg{
		DownloadID: w.id,
		Title:      title,
		OutputPath: outputPath,
		MediaType:  mediaType,
		Elapsed:    time.Since(w.started),
	})
}

func (w *worker) finishCancelled() {
	w.mu.Lock()
	w.setPhaseLocked(types.PhaseCancelled)
	msg := "Cancelled: " + w.labelLocked()
	if w.resolved {
		msg = fmt.Sprintf("Cancelled: %s by %s", w.status.Title, w.status.Channel)
	}
	w.mu.Unlock()

	w.emit(events.LogMsg{DownloadID: w.id, Message: msg, Time: time.Now()})
	w.emit(events.DownloadStatusMsg{DownloadID: w.id, Phase: types.PhaseCancelled, Status: types.StatusCancelled})
}

func (w *worker) finishFailed(logLine string, err error) {
	w.mu.Lock()
	w.setPhaseLocked(types.PhaseFailed)
	w.status.Error = err.Error()
	title := w.status.Title
	w.mu.Unlock()

	utils.Debug("Worker %s failed: %v", utils.ShortID(w.id), err)
	w.emit(events.LogMsg{DownloadID: w.id, Message: logLine, Time: time.Now()})
	w.emit(events.DownloadStatusMsg{DownloadID: w.id, Phase: types.PhaseFailed, Status: types.StatusError})
	w.emit(events.DownloadErrorMsg{DownloadID: w.id, Title: title, Err: err})
}
