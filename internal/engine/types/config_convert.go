package types

import (
	"time"

	"github.com/tubeq/tubeq/internal/config"
)

// ConvertRuntimeConfig converts the app-level RuntimeConfig to the engine-level RuntimeConfig.
func ConvertRuntimeConfig(rc *config.RuntimeConfig) *RuntimeConfig {
	return &RuntimeConfig{
		MaxConcurrent:     rc.MaxConcurrentDownloads,
		SchedulerInterval: time.Duration(rc.SchedulerIntervalSeconds) * time.Second,
		HistoryEnabled:    rc.HistoryEnabled,
		CookieFile:        rc.CookieFile,
		ProxyURL:          rc.ProxyURL,
		RateLimit:         rc.RateLimitBytes,
	}
}

// DefaultTask builds the descriptor used when a request only names a URL.
// Invalid settings values fall back to the package defaults.
func DefaultTask(s *config.Settings) TaskDescriptor {
	desc := TaskDescriptor{
		Resolution:   DefaultResolution,
		OutputFormat: DefaultOutputFormat,
		Priority:     DefaultPriority,
		Recurrence:   RecurrenceNone,
	}
	if s == nil {
		return desc
	}
	if r, err := ParseResolution(s.Downloads.DefaultResolution); err == nil {
		desc.Resolution = r
	}
	if f, err := ParseOutputFormat(s.Downloads.DefaultFormat); err == nil {
		desc.OutputFormat = f
	}
	desc.Destination = s.General.DefaultDownloadDir
	desc.AudioOnly = s.Downloads.AudioOnly
	desc.Subtitles = s.Downloads.Subtitles
	desc.MaxRateBytesPerSec = s.ToRuntimeConfig().RateLimitBytes
	return desc
}
