package engine

import (
	"context"
)

// Progress is one sample reported by an Executor.
type Progress struct {
	Downloaded int64
	Total      int64   // 0 when unknown
	Speed      float64 // bytes per second
	ETA        int64   // seconds, 0 when unknown
}

// ProgressFunc receives progress samples. Returning a non-nil error asks the
// executor to abort the transfer and return that error. The callback may
// block; the executor must tolerate that.
type ProgressFunc func(Progress) error

// Result describes a finished transfer.
type Result struct {
	OutputPath string
}

// Executor performs the actual transfer for a URL.
type Executor interface {
	Execute(ctx context.Context, url string, opts Options, onProgress ProgressFunc) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, url string, opts Options, onProgress ProgressFunc) (*Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, url string, opts Options, onProgress ProgressFunc) (*Result, error) {
	return f(ctx, url, opts, onProgress)
}
