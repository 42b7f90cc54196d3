package types

import (
	"fmt"
	"strings"
)

// Resolution is the requested vertical resolution. It is informational and
// only travels to the executor.
type Resolution string

const (
	Resolution144p  Resolution = "144p"
	Resolution240p  Resolution = "240p"
	Resolution360p  Resolution = "360p"
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution1440p Resolution = "1440p"
	Resolution2160p Resolution = "2160p"
	Resolution4320p Resolution = "4320p"
)

// Resolutions lists every supported resolution, lowest first.
var Resolutions = []Resolution{
	Resolution144p, Resolution240p, Resolution360p, Resolution480p,
	Resolution720p, Resolution1080p, Resolution1440p, Resolution2160p, Resolution4320p,
}

// ParseResolution accepts "720p", "720" or "720P".
func ParseResolution(s string) (Resolution, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultResolution, nil
	}
	if !strings.HasSuffix(s, "p") {
		s += "p"
	}
	for _, r := range Resolutions {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported resolution %q", s)
}

// OutputFormats are the containers a video download can be merged into.
var OutputFormats = []string{"mp4", "mkv", "webm", "flv", "avi"}

// ParseOutputFormat normalizes and validates a container name.
func ParseOutputFormat(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultOutputFormat, nil
	}
	for _, f := range OutputFormats {
		if f == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Priority is advisory. The queue stays FIFO regardless of its value.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// ParsePriority accepts 1-3 or high/medium/low.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "2", "medium":
		return PriorityMedium, nil
	case "1", "high":
		return PriorityHigh, nil
	case "3", "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("invalid priority %q", s)
}

// Recurrence controls how a scheduled entry re-arms after it fires.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ParseRecurrence is case-insensitive; an empty string means none.
func ParseRecurrence(s string) (Recurrence, error) {
	switch r := Recurrence(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RecurrenceNone, nil
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return r, nil
	}
	return "", fmt.Errorf("invalid recurrence %q", s)
}

// TaskDescriptor describes one requested download. It is a value type and is
// never modified after submission.
type TaskDescriptor struct {
	URL          string     `json:"url"`
	Resolution   Resolution `json:"resolution,omitempty"`
	Destination  string     `json:"destination"`
	AudioOnly    bool       `json:"audio_only,omitempty"`
	Playlist     bool       `json:"playlist,omitempty"`
	Subtitles    bool       `json:"subtitles,omitempty"`
	OutputFormat string     `json:"output_format,omitempty"`
	FromQueue    bool       `json:"from_queue,omitempty"`
	Priority     Priority   `json:"priority,omitempty"`
	Recurrence   Recurrence `json:"recurrence,omitempty"`

	MaxRateBytesPerSec int64 `json:"max_rate,omitempty"` // 0 = unset
}
