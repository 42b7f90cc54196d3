package download

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tubeq/tubeq/internal/engine"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

var (
	ErrNotFound   = errors.New("download not found")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// WorkerPool admits submitted tasks into a bounded set of active workers.
// Tasks wait in a FIFO backlog until a slot frees up.
type WorkerPool struct {
	progressCh chan<- any
	resolver   engine.MetadataResolver
	executor   engine.Executor

	mu            sync.RWMutex
	downloads     map[string]*worker // every task the pool knows about
	order         map[string]uint64  // submission sequence, for stable listing
	seq           uint64
	active        map[string]*worker
	backlog       []*worker
	maxConcurrent int
	closed        bool

	closing atomic.Bool
	wg      sync.WaitGroup // running workers
}

// NewWorkerPool creates a pool that reports every event on progressCh.
func NewWorkerPool(progressCh chan<- any, resolver engine.MetadataResolver, executor engine.Executor, maxConcurrent int) *WorkerPool {
	return &WorkerPool{
		progressCh:    progressCh,
		resolver:      resolver,
		executor:      executor,
		downloads:     make(map[string]*worker),
		order:         make(map[string]uint64),
		active:        make(map[string]*worker),
		maxConcurrent: clampConcurrency(maxConcurrent),
	}
}

func clampConcurrency(n int) int {
	if n < types.MinMaxConcurrent {
		return types.MinMaxConcurrent
	}
	return n
}

// send forwards an event to the sink. It must never be called with p.mu
// held. Once shutdown has begun, events that cannot be delivered at once
// are dropped so workers can exit without a reader.
func (p *WorkerPool) send(msg any) {
	if p.progressCh == nil {
		return
	}
	if p.closing.Load() {
		select {
		case p.progressCh <- msg:
		default:
		}
		return
	}
	p.progressCh <- msg
}

// Submit validates desc, queues it and promotes it at once if a slot is free.
func (p *WorkerPool) Submit(desc types.TaskDescriptor) (string, error) {
	if err := engine.ValidateDescriptor(desc); err != nil {
		return "", err
	}

	id := uuid.New().String()
	w := newWorker(id, desc, p.resolver, p.executor, p.send)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrPoolClosed
	}
	p.downloads[id] = w
	p.seq++
	p.order[id] = p.seq
	p.mu.Unlock()

	// Queued goes out before the task is visible to admission so it always
	// precedes Started.
	p.send(events.DownloadQueuedMsg{DownloadID: id, URL: desc.URL})
	utils.Debug("Queued %s: %s", utils.ShortID(id), desc.URL)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		w.cancelPending()
		return "", ErrPoolClosed
	}
	p.backlog = append(p.backlog, w)
	promoted := p.admitLocked()
	p.mu.Unlock()

	p.launch(promoted)
	return id, nil
}

// admitLocked promotes backlog entries in FIFO order while the active set is
// below the limit. This is the only place the limit is enforced. Caller
// holds p.mu.
func (p *WorkerPool) admitLocked() []*worker {
	var promoted []*worker
	for len(p.active) < p.maxConcurrent && len(p.backlog) > 0 {
		w := p.backlog[0]
		p.backlog[0] = nil
		p.backlog = p.backlog[1:]

		if !w.promote() {
			continue
		}
		p.active[w.id] = w
		p.wg.Add(1)
		promoted = append(promoted, w)
	}
	return promoted
}

func (p *WorkerPool) launch(promoted []*worker) {
	for _, w := range promoted {
		p.send(events.DownloadStartedMsg{DownloadID: w.id, URL: w.desc.URL})
		go func(w *worker) {
			defer p.wg.Done()
			w.run()
			p.onWorkerTerminal(w.id)
		}(w)
	}
}

// onWorkerTerminal frees the worker's slot and admits the next backlog entry.
func (p *WorkerPool) onWorkerTerminal(id string) {
	p.mu.Lock()
	delete(p.active, id)
	var promoted []*worker
	if !p.closed {
		promoted = p.admitLocked()
	}
	p.mu.Unlock()

	p.launch(promoted)
}

// SetMaxConcurrent changes the ceiling. Running workers are never preempted
// and no admission happens here; the new limit applies on the next
// completion or StartBacklog call.
func (p *WorkerPool) SetMaxConcurrent(n int) {
	n = clampConcurrency(n)
	p.mu.Lock()
	p.maxConcurrent = n
	p.mu.Unlock()
	utils.Debug("Max concurrent downloads set to %d", n)
}

// MaxConcurrent returns the current ceiling.
func (p *WorkerPool) MaxConcurrent() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxConcurrent
}

// StartBacklog promotes as many backlog entries as capacity allows and
// returns how many were started.
func (p *WorkerPool) StartBacklog() int {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0
	}
	promoted := p.admitLocked()
	p.mu.Unlock()

	p.launch(promoted)
	return len(promoted)
}

func (p *WorkerPool) activeWorkers() []*worker {
	p.mu.RLock()
	defer p.mu.RUnlock()
	workers := make([]*worker, 0, len(p.active))
	for _, w := range p.active {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return p.order[workers[i].id] < p.order[workers[j].id] })
	return workers
}

// PauseAll pauses every active worker. Backlogged tasks are not touched.
func (p *WorkerPool) PauseAll() {
	for _, w := range p.activeWorkers() {
		w.pause()
	}
}

// ResumeAll resumes every paused active worker.
func (p *WorkerPool) ResumeAll() {
	for _, w := range p.activeWorkers() {
		w.resume()
	}
}

// CancelAll cancels every active worker. Backlogged tasks stay queued.
func (p *WorkerPool) CancelAll() {
	for _, w := range p.activeWorkers() {
		w.requestCancel()
	}
}

func (p *WorkerPool) lookup(id string) (*worker, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	w, ok := p.downloads[id]
	if !ok {
		return nil, false
	}
	_, isActive := p.active[id]
	return w, isActive
}

// Pause pauses a single active download.
func (p *WorkerPool) Pause(id string) error {
	w, isActive := p.lookup(id)
	if w == nil {
		return ErrNotFound
	}
	if isActive {
		w.pause()
	}
	return nil
}

// Resume resumes a single paused download.
func (p *WorkerPool) Resume(id string) error {
	w, isActive := p.lookup(id)
	if w == nil {
		return ErrNotFound
	}
	if isActive {
		w.resume()
	}
	return nil
}

// Cancel stops a download. A task still waiting in the backlog is removed
// from it and marked cancelled without ever running. Cancelling a finished
// task is a no-op.
func (p *WorkerPool) Cancel(id string) error {
	p.mu.Lock()
	w, ok := p.downloads[id]
	if !ok {
		p.mu.Unlock()
		return ErrNotFound
	}
	_, isActive := p.active[id]
	if !isActive {
		p.removeFromBacklogLocked(id)
	}
	p.mu.Unlock()

	if isActive {
		w.requestCancel()
		return nil
	}
	w.cancelPending()
	return nil
}

func (p *WorkerPool) removeFromBacklogLocked(id string) {
	for i, w := range p.backlog {
		if w.id == id {
			p.backlog = append(p.backlog[:i], p.backlog[i+1:]...)
			return
		}
	}
}

// Remove cancels the download if needed and forgets it.
func (p *WorkerPool) Remove(id string) error {
	if err := p.Cancel(id); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.downloads, id)
	delete(p.order, id)
	p.mu.Unlock()

	p.send(events.DownloadRemovedMsg{DownloadID: id})
	return nil
}

// HasDownload reports whether id is known to the pool.
func (p *WorkerPool) HasDownload(id string) bool {
	w, _ := p.lookup(id)
	return w != nil
}

// GetStatus returns a snapshot of one download.
func (p *WorkerPool) GetStatus(id string) (*types.DownloadStatus, error) {
	w, _ := p.lookup(id)
	if w == nil {
		return nil, ErrNotFound
	}
	st := w.snapshot()
	return &st, nil
}

// GetAll returns snapshots of every known download in submission order.
func (p *WorkerPool) GetAll() []types.DownloadStatus {
	p.mu.RLock()
	workers := make([]*worker, 0, len(p.downloads))
	for _, w := range p.downloads {
		workers = append(workers, w)
	}
	order := make(map[string]uint64, len(p.order))
	for id, n := range p.order {
		order[id] = n
	}
	p.mu.RUnlock()

	sort.Slice(workers, func(i, j int) bool { return order[workers[i].id] < order[workers[j].id] })
	out := make([]types.DownloadStatus, 0, len(workers))
	for _, w := range workers {
		out = append(out, w.snapshot())
	}
	return out
}

// ActiveCount returns the number of workers holding a slot.
func (p *WorkerPool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.active)
}

// PendingCount returns the backlog length.
func (p *WorkerPool) PendingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.backlog)
}

// GracefulShutdown cancels all active downloads, drops the backlog and waits
// for every worker goroutine to return.
func (p *WorkerPool) GracefulShutdown() {
	p.closing.Store(true)

	p.mu.Lock()
	p.closed = true
	dropped := p.backlog
	p.backlog = nil
	p.mu.Unlock()

	for _, w := range dropped {
		w.cancelPending()
	}
	p.CancelAll()
	p.wg.Wait()
}
