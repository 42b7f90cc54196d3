package types

import (
	"time"
)

// Size constants
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// Queue limits
const (
	DefaultMaxConcurrent = 3 // Workers allowed in an active phase at once
	MinMaxConcurrent     = 1
	MaxMaxConcurrent     = 32
)

// Scheduler timing
const (
	DefaultSchedulerInterval = 10 * time.Second
	MinSchedulerInterval     = 1 * time.Second
)

// Progress reporting
const (
	ProgressInterval      = 500 * time.Millisecond // yt-dlp progress sampling period
	ProgressChannelBuffer = 100
)

// Defaults applied to a descriptor built from user settings
const (
	DefaultResolution   = Resolution720p
	DefaultOutputFormat = "mp4"
	DefaultPriority     = PriorityMedium
)

// RuntimeConfig holds dynamic settings that can override defaults
type RuntimeConfig struct {
	MaxConcurrent     int
	SchedulerInterval time.Duration
	ProgressInterval  time.Duration
	HistoryEnabled    bool
	CookieFile        string
	ProxyURL          string
	RateLimit         int64 // bytes per second, 0 = unlimited
}

// GetMaxConcurrent returns the configured limit or the default
func (r *RuntimeConfig) GetMaxConcurrent() int {
	if r == nil || r.MaxConcurrent <= 0 {
		return DefaultMaxConcurrent
	}
	if r.MaxConcurrent > MaxMaxConcurrent {
		return MaxMaxConcurrent
	}
	return r.MaxConcurrent
}

// GetSchedulerInterval returns configured value or default
func (r *RuntimeConfig) GetSchedulerInterval() time.Duration {
	if r == nil || r.SchedulerInterval <= 0 {
		return DefaultSchedulerInterval
	}
	if r.SchedulerInterval < MinSchedulerInterval {
		return MinSchedulerInterval
	}
	return r.SchedulerInterval
}

// GetProgressInterval returns configured value or default
func (r *RuntimeConfig) GetProgressInterval() time.Duration {
	if r == nil || r.ProgressInterval <= 0 {
		return ProgressInterval
	}
	return r.ProgressInterval
}
