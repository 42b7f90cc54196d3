package engine

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/tubeq/tubeq/internal/engine/types"
)

// Format selectors
const (
	FormatAudio    = "bestaudio/best"
	FormatMP4Video = `bestvideo[vcodec*="avc1"]+bestaudio[acodec*="mp4a"]/best`
	FormatVideo    = "bestvideo+bestaudio/best"

	AudioCodec   = "mp3"
	AudioQuality = "192"

	OutputTemplate = "%(title)s.%(ext)s"
)

// Options is the executor configuration derived from a TaskDescriptor.
type Options struct {
	Format            string
	MergeOutputFormat string // empty for audio-only
	ExtractAudio      bool
	AudioFormat       string
	AudioQuality      string
	WriteSubtitles    bool
	AllSubtitles      bool
	NoPlaylist        bool
	RateLimit         int64 // bytes per second, 0 = unlimited
	OutputTemplate    string
	Resolution        types.Resolution
}

// BuildOptions maps a descriptor to executor options.
func BuildOptions(desc types.TaskDescriptor) Options {
	opts := Options{
		NoPlaylist:     !desc.Playlist,
		RateLimit:      desc.MaxRateBytesPerSec,
		OutputTemplate: filepath.Join(desc.Destination, OutputTemplate),
		Resolution:     desc.Resolution,
	}

	switch {
	case desc.AudioOnly:
		opts.Format = FormatAudio
		opts.ExtractAudio = true
		opts.AudioFormat = AudioCodec
		opts.AudioQuality = AudioQuality
	case desc.OutputFormat == "" || desc.OutputFormat == "mp4":
		opts.Format = FormatMP4Video
		opts.MergeOutputFormat = "mp4"
	default:
		opts.Format = FormatVideo
		opts.MergeOutputFormat = desc.OutputFormat
	}

	if desc.Subtitles {
		opts.WriteSubtitles = true
		opts.AllSubtitles = true
	}
	return opts
}

// ValidateURL checks that raw is a non-empty http(s) URL with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "empty"}
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return &ValidationError{Field: "url", Reason: "must start with http:// or https://"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Reason: "missing host"}
	}
	return nil
}

// ValidateDescriptor checks every field Submit relies on.
func ValidateDescriptor(desc types.TaskDescriptor) error {
	if err := ValidateURL(desc.URL); err != nil {
		return err
	}
	if desc.MaxRateBytesPerSec < 0 {
		return &ValidationError{Field: "max_rate", Reason: "must not be negative"}
	}
	if desc.Priority != 0 && (desc.Priority < types.PriorityHigh || desc.Priority > types.PriorityLow) {
		return &ValidationError{Field: "priority", Reason: "must be 1, 2 or 3"}
	}
	return nil
}
