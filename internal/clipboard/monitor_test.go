package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *fakeClipboard) set(s string) {
	f.mu.Lock()
	f.text = s
	f.mu.Unlock()
}

func (f *fakeClipboard) read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

type sink struct {
	mu   sync.Mutex
	urls []string
}

func (s *sink) submit(u string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, u)
	return nil
}

func (s *sink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

func TestCheck(t *testing.T) {
	cb := &fakeClipboard{}
	out := &sink{}
	m := &Monitor{Read: cb.read, Submit: out.submit}

	cb.set("just some text")
	assert.Equal(t, 0, m.Check())

	cb.set("watch https://youtube.com/watch?v=abc and https://vimeo.com/1.")
	assert.Equal(t, 2, m.Check())

	// Same content is not resubmitted.
	assert.Equal(t, 0, m.Check())

	cb.set("https://youtube.com/watch?v=xyz")
	assert.Equal(t, 1, m.Check())

	assert.Equal(t, []string{
		"https://youtube.com/watch?v=abc",
		"https://vimeo.com/1",
		"https://youtube.com/watch?v=xyz",
	}, out.got())
}

func TestCheck_ReadErrorAndSubmitError(t *testing.T) {
	cb := &fakeClipboard{err: errors.New("no clipboard")}
	m := &Monitor{Read: cb.read, Submit: func(string) error { return errors.New("rejected") }}
	assert.Equal(t, 0, m.Check())

	cb.err = nil
	cb.set("https://example.com/v")
	assert.Equal(t, 0, m.Check())
}

func TestRun_IgnoresInitialContent(t *testing.T) {
	cb := &fakeClipboard{text: "https://example.com/old"}
	out := &sink{}
	m := &Monitor{Interval: 5 * time.Millisecond, Read: cb.read, Submit: out.submit}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cb.set("https://example.com/new")

	assert.Eventually(t, func() bool { return len(out.got()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"https://example.com/new"}, out.got())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
