// Package ytdlp adapts the yt-dlp binary, through go-ytdlp, to the engine's
// MetadataResolver and Executor interfaces.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/tubeq/tubeq/internal/engine"
	"github.com/tubeq/tubeq/internal/utils"
)

// ConsentCookie is written to a fresh cookie file so YouTube skips its
// consent interstitial.
const ConsentCookie = "# Netscape HTTP Cookie File\nyoutube.com\tFALSE\t/\tFALSE\t0\tCONSENT\tYES+42\n"

// Config holds the network options shared by every invocation.
type Config struct {
	CookieFile       string
	ProxyURL         string
	ProgressInterval time.Duration
	// RateLimit is the global cap in bytes/s applied when a task sets none.
	RateLimit int64
}

// Client implements engine.MetadataResolver and engine.Executor.
type Client struct {
	mu  sync.RWMutex
	cfg Config
}

// New creates a client. The cookie file, if configured, is created with the
// consent cookie when missing.
func New(cfg Config) (*Client, error) {
	if cfg.CookieFile != "" {
		if err := EnsureCookieFile(cfg.CookieFile); err != nil {
			return nil, err
		}
	}
	return &Client{cfg: cfg}, nil
}

// SetConfig swaps the configuration used by future invocations.
func (c *Client) SetConfig(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Client) config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// EnsureCookieFile writes ConsentCookie to path unless the file exists.
func EnsureCookieFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(ConsentCookie), 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	utils.Debug("Created consent cookie file at %s", path)
	return nil
}

func (c *Client) base(cfg Config) *ytdlp.Command {
	cmd := ytdlp.New()
	if cfg.CookieFile != "" {
		cmd = cmd.Cookies(cfg.CookieFile)
	}
	if cfg.ProxyURL != "" {
		cmd = cmd.Proxy(cfg.ProxyURL)
	}
	return cmd
}

// Resolve asks yt-dlp for the URL's metadata without downloading anything.
func (c *Client) Resolve(ctx context.Context, url string) (engine.Metadata, error) {
	cmd := c.base(c.config()).
		SkipDownload().
		FlatPlaylist().
		DumpSingleJSON()

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return engine.Metadata{}, err
	}
	info, err := res.GetExtractedInfo()
	if err != nil {
		return engine.Metadata{}, err
	}
	if len(info) == 0 {
		return engine.Metadata{}, fmt.Errorf("no metadata returned for %s", url)
	}

	md := engine.Metadata{Title: deref(info[0].Title), Uploader: deref(info[0].Uploader)}
	if md.Uploader == "" {
		md.Uploader = deref(info[0].Channel)
	}
	return md, nil
}

// Execute downloads url. onProgress is called from go-ytdlp's progress
// goroutine; if it returns an error the process is killed and that error is
// returned.
func (c *Client) Execute(ctx context.Context, url string, opts engine.Options, onProgress engine.ProgressFunc) (*engine.Result, error) {
	cfg := c.config()
	if opts.RateLimit == 0 {
		opts.RateLimit = cfg.RateLimit
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		cbMu  sync.Mutex
		cbErr error
	)
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	cmd := apply(c.base(cfg), opts).
		NoSimulate().
		PrintJSON()
	cmd.ProgressFunc(interval, func(update ytdlp.ProgressUpdate) {
		cbMu.Lock()
		defer cbMu.Unlock()
		if cbErr != nil || onProgress == nil {
			return
		}
		if err := onProgress(progressFromUpdate(update, time.Now())); err != nil {
			cbErr = err
			cancel()
		}
	})

	res, err := cmd.Run(ctx, url)

	cbMu.Lock()
	abort := cbErr
	cbMu.Unlock()
	if abort != nil {
		return nil, abort
	}
	if err != nil {
		return nil, err
	}

	out := &engine.Result{}
	if info, ierr := res.GetExtractedInfo(); ierr == nil && len(info) > 0 {
		out.OutputPath = deref(info[0].Filename)
	}
	return out, nil
}

// apply maps engine options onto a command.
func apply(cmd *ytdlp.Command, opts engine.Options) *ytdlp.Command {
	cmd = cmd.Format(opts.Format).RestrictFilenames()
	if opts.MergeOutputFormat != "" {
		cmd = cmd.MergeOutputFormat(opts.MergeOutputFormat)
	}
	if opts.ExtractAudio {
		cmd = cmd.ExtractAudio().AudioFormat(opts.AudioFormat).AudioQuality(opts.AudioQuality)
	}
	if opts.WriteSubtitles {
		cmd = cmd.WriteSubs().SubLangs(subLangs(opts.AllSubtitles))
	}
	if opts.NoPlaylist {
		cmd = cmd.NoPlaylist()
	} else {
		cmd = cmd.YesPlaylist()
	}
	if r := rateLimitArg(opts.RateLimit); r != "" {
		cmd = cmd.LimitRate(r)
	}
	if opts.OutputTemplate != "" {
		cmd = cmd.Output(opts.OutputTemplate)
	}
	return cmd
}

func subLangs(all bool) string {
	if all {
		return "all"
	}
	return "en.*"
}

// rateLimitArg renders bytes/s the way yt-dlp's --limit-rate expects.
func rateLimitArg(bps int64) string {
	if bps <= 0 {
		return ""
	}
	return strconv.FormatInt(bps, 10)
}

func progressFromUpdate(u ytdlp.ProgressUpdate, now time.Time) engine.Progress {
	p := engine.Progress{
		Downloaded: int64(u.DownloadedBytes),
		Total:      int64(u.TotalBytes),
	}
	if !u.Started.IsZero() {
		if elapsed := now.Sub(u.Started).Seconds(); elapsed > 0 {
			p.Speed = float64(p.Downloaded) / elapsed
		}
	}
	if eta := u.ETA(); eta > 0 {
		p.ETA = int64(eta.Seconds())
	} else if p.Total > 0 && p.Speed > 0 && p.Total > p.Downloaded {
		p.ETA = int64(float64(p.Total-p.Downloaded) / p.Speed)
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
