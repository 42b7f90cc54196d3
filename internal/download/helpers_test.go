package download_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubeq/tubeq/internal/download"
	"github.com/tubeq/tubeq/internal/engine"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
)

const waitTimeout = 3 * time.Second

// recorder drains a pool's event channel and keeps every message in order.
type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func newRecorder(t *testing.T) (chan any, *recorder) {
	t.Helper()
	ch := make(chan any, 1024)
	r := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			r.mu.Lock()
			r.msgs = append(r.msgs, msg)
			r.mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		close(ch)
		<-done
	})
	return ch, r
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// statuses returns the status texts emitted for id, in order.
func (r *recorder) statuses(id string) []string {
	var out []string
	for _, msg := range r.all() {
		if m, ok := msg.(events.DownloadStatusMsg); ok && m.DownloadID == id {
			out = append(out, m.Status)
		}
	}
	return out
}

func (r *recorder) hasStatus(id, status string) bool {
	for _, s := range r.statuses(id) {
		if s == status {
			return true
		}
	}
	return false
}

func (r *recorder) startedOrder() []string {
	var out []string
	for _, msg := range r.all() {
		if m, ok := msg.(events.DownloadStartedMsg); ok {
			out = append(out, m.DownloadID)
		}
	}
	return out
}

func (r *recorder) progress(id string) []events.ProgressMsg {
	var out []events.ProgressMsg
	for _, msg := range r.all() {
		if m, ok := msg.(events.ProgressMsg); ok && m.DownloadID == id {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) logs(id string) []string {
	var out []string
	for _, msg := range r.all() {
		if m, ok := msg.(events.LogMsg); ok && m.DownloadID == id {
			out = append(out, m.Message)
		}
	}
	return out
}

// indexOf returns the position of the first message matching pred, or -1.
func (r *recorder) indexOf(pred func(any) bool) int {
	for i, msg := range r.all() {
		if pred(msg) {
			return i
		}
	}
	return -1
}

// requireStatuses waits until exactly want has been emitted for id.
func (r *recorder) requireStatuses(t *testing.T, id string, want ...string) {
	t.Helper()
	require.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.Equal(c, want, r.statuses(id))
	}, waitTimeout, 2*time.Millisecond)
}

// waitMsg waits until a message matching pred has been recorded and returns
// its position.
func (r *recorder) waitMsg(t *testing.T, pred func(any) bool) int {
	t.Helper()
	require.Eventually(t, func() bool { return r.indexOf(pred) >= 0 }, waitTimeout, time.Millisecond)
	return r.indexOf(pred)
}

func (r *recorder) waitStarted(t *testing.T, n int) []string {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.startedOrder()) >= n }, waitTimeout, time.Millisecond)
	return r.startedOrder()
}

func okResolver() engine.MetadataResolver {
	return engine.ResolverFunc(func(ctx context.Context, url string) (engine.Metadata, error) {
		return engine.Metadata{Title: "Title of " + url, Uploader: "Channel"}, nil
	})
}

// gatedExecutor reports progress every couple of milliseconds until its gate
// for the URL is released or the context ends. It tracks peak concurrency.
type gatedExecutor struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	running int
	peak    int
	result  *engine.Result
	err     error
}

func newGatedExecutor() *gatedExecutor {
	return &gatedExecutor{gates: make(map[string]chan struct{})}
}

func (g *gatedExecutor) gate(url string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[url]
	if !ok {
		ch = make(chan struct{})
		g.gates[url] = ch
	}
	return ch
}

func (g *gatedExecutor) release(url string) {
	close(g.gate(url))
}

func (g *gatedExecutor) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

func (g *gatedExecutor) Execute(ctx context.Context, url string, opts engine.Options, onProgress engine.ProgressFunc) (*engine.Result, error) {
	g.mu.Lock()
	g.running++
	if g.running > g.peak {
		g.peak = g.running
	}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.running--
		g.mu.Unlock()
	}()

	gate := g.gate(url)
	var downloaded int64
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-gate:
			return g.result, g.err
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			downloaded += 10
			if err := onProgress(engine.Progress{Downloaded: downloaded, Total: 1000, Speed: 100}); err != nil {
				return nil, err
			}
		}
	}
}

func newPool(t *testing.T, resolver engine.MetadataResolver, executor engine.Executor, max int) (*download.WorkerPool, *recorder) {
	t.Helper()
	ch, rec := newRecorder(t)
	pool := download.NewWorkerPool(ch, resolver, executor, max)
	t.Cleanup(pool.GracefulShutdown)
	return pool, rec
}

func submit(t *testing.T, pool *download.WorkerPool, url string) string {
	t.Helper()
	id, err := pool.Submit(types.TaskDescriptor{URL: url, Destination: t.TempDir()})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func waitPhase(t *testing.T, pool *download.WorkerPool, id string, phase types.Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := pool.GetStatus(id)
		return err == nil && st.Phase == phase
	}, waitTimeout, 2*time.Millisecond, "task %s never reached %s", id, phase)
}
