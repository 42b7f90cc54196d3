package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tubeq/tubeq/internal/api"
	"github.com/tubeq/tubeq/internal/clipboard"
	"github.com/tubeq/tubeq/internal/config"
	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/download"
	"github.com/tubeq/tubeq/internal/engine/state"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/scheduler"
	"github.com/tubeq/tubeq/internal/utils"
	"github.com/tubeq/tubeq/internal/ytdlp"
)

// DefaultPort is where port auto-discovery starts.
const DefaultPort = 1700

// daemon wires the queue, scheduler, history, API server and clipboard
// monitor of one running instance.
type daemon struct {
	Service *core.LocalDownloadService
	Port    int
	Token   string

	client    *ytdlp.Client
	pool      *download.WorkerPool
	scheduler *scheduler.Scheduler
	server    *http.Server

	mu        sync.RWMutex
	settings  *config.Settings
	outputDir string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// initializeGlobalState prepares directories, the state database and the
// debug log.
func initializeGlobalState() *config.Settings {
	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create app directories: %v\n", err)
	}

	state.Configure(config.GetDatabasePath())

	if err := utils.ConfigureDebug(config.GetLogsDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default settings: %v\n", err)
		settings = config.DefaultSettings()
	}
	utils.CleanupLogs(config.GetLogsDir(), settings.General.LogRetentionCount)
	return settings
}

func ytdlpConfig(rc *types.RuntimeConfig) ytdlp.Config {
	return ytdlp.Config{
		CookieFile:       rc.CookieFile,
		ProxyURL:         rc.ProxyURL,
		ProgressInterval: rc.GetProgressInterval(),
		RateLimit:        rc.RateLimit,
	}
}

// listen binds portFlag, or the first free port from DefaultPort when it is 0.
func listen(portFlag int) (int, net.Listener, error) {
	if portFlag > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", portFlag))
		if err != nil {
			return 0, nil, fmt.Errorf("could not bind to port %d: %w", portFlag, err)
		}
		return portFlag, ln, nil
	}
	port, ln := findAvailablePort(DefaultPort)
	if ln == nil {
		return 0, nil, errors.New("could not find available port")
	}
	return port, ln, nil
}

// startDaemon builds every component from settings and starts serving the
// API on ln. outputDir, when set, overrides the default destination.
func startDaemon(settings *config.Settings, ln net.Listener, port int, outputDir string) (*daemon, error) {
	rc := types.ConvertRuntimeConfig(settings.ToRuntimeConfig())

	client, err := ytdlp.New(ytdlpConfig(rc))
	if err != nil {
		return nil, fmt.Errorf("preparing yt-dlp: %w", err)
	}

	ch := make(chan any, types.ProgressChannelBuffer)
	pool := download.NewWorkerPool(ch, client, client, rc.GetMaxConcurrent())
	sched := scheduler.New(pool,
		scheduler.WithStore(state.ScheduleStore{}),
		scheduler.WithEvents(ch),
		scheduler.WithInterval(rc.GetSchedulerInterval()),
	)
	if err := sched.Load(); err != nil {
		utils.Debug("Error loading schedules: %v", err)
	}

	d := &daemon{
		Port:      port,
		Token:     ensureAuthToken(),
		client:    client,
		pool:      pool,
		scheduler: sched,
		settings:  settings,
		outputDir: outputDir,
	}
	d.Service = core.NewLocalDownloadService(pool, sched, ch, rc.HistoryEnabled)
	d.Service.SetDefaults(d.defaults())

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sched.Run(ctx)
	}()

	srv := &api.Server{
		Service:   d.Service,
		Token:     d.Token,
		Defaults:  d.defaults,
		Port:      port,
		Heartbeat: 15 * time.Second,
	}
	d.server = &http.Server{Handler: srv.Handler()}
	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Debug("HTTP server error: %v", err)
		}
	}()

	if settings.General.ClipboardMonitor {
		d.startClipboard(ctx)
	}

	if _, err := os.Stat(config.GetSettingsPath()); os.IsNotExist(err) {
		if err := config.SaveSettings(settings); err != nil {
			utils.Debug("Error writing default settings: %v", err)
		}
	}
	if err := config.WatchSettings(d.applySettings); err != nil {
		utils.Debug("Settings hot reload disabled: %v", err)
	}

	utils.Debug("Daemon started on port %d", port)
	return d, nil
}

// defaults returns the descriptor applied to URL-only requests.
func (d *daemon) defaults() types.TaskDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc := types.DefaultTask(d.settings)
	if d.outputDir != "" {
		desc.Destination = d.outputDir
	}
	if abs, err := filepath.Abs(desc.Destination); err == nil && desc.Destination != "" {
		desc.Destination = abs
	}
	return desc
}

// applySettings is the hot-reload callback.
func (d *daemon) applySettings(s *config.Settings) {
	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()

	rc := types.ConvertRuntimeConfig(s.ToRuntimeConfig())
	if err := d.Service.SetMaxConcurrent(rc.GetMaxConcurrent()); err != nil {
		utils.Debug("Ignoring max concurrent downloads: %v", err)
	}
	d.Service.SetHistoryEnabled(rc.HistoryEnabled)
	d.Service.SetDefaults(d.defaults())
	d.client.SetConfig(ytdlpConfig(rc))
	utils.Debug("Settings reloaded")
}

func (d *daemon) startClipboard(ctx context.Context) {
	if !clipboard.Supported() {
		utils.Debug("Clipboard monitor unavailable on this system")
		return
	}
	mon := clipboard.NewMonitor(func(url string) error {
		desc := d.defaults()
		desc.URL = url
		_, err := d.Service.Add(desc)
		return err
	})
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		mon.Run(ctx)
	}()
}

// queueURLs adds urls with the default descriptor and returns how many were
// accepted.
func (d *daemon) queueURLs(urls []string) int {
	added := 0
	for _, url := range urls {
		desc := d.defaults()
		desc.URL = url
		if _, err := d.Service.Add(desc); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", url, err)
			continue
		}
		added++
	}
	return added
}

// stop shuts everything down. Running downloads are cancelled and event
// streams are closed before the HTTP server drains.
func (d *daemon) stop() {
	d.cancel()
	d.wg.Wait()

	if err := d.Service.Shutdown(); err != nil {
		utils.Debug("Service shutdown: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		utils.Debug("HTTP server shutdown: %v", err)
	}
	state.CloseDB()
}
