package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/engine/types"
)

type UIState int

const (
	DashboardState UIState = iota
	InputState
	DetailState
)

// Dashboard tabs
const (
	TabQueued = iota
	TabActive
	TabDone
)

// DownloadModel is the TUI's view of one task, rebuilt from events.
type DownloadModel struct {
	ID         string
	URL        string
	Title      string
	Channel    string
	Phase      types.Phase
	Status     string
	Percent    float64
	Downloaded int64
	Total      int64
	Speed      float64
	ETA        int64
	OutputPath string
	Err        string
	AddedAt    time.Time

	progress progress.Model
}

func NewDownloadModel(id, url string) *DownloadModel {
	return &DownloadModel{
		ID:       id,
		URL:      url,
		Title:    types.PlaceholderTitle,
		Channel:  types.PlaceholderTitle,
		Phase:    types.PhasePending,
		Status:   types.StatusQueued,
		AddedAt:  time.Now(),
		progress: progress.New(progress.WithGradient(string(ColorNeonPurple), string(ColorNeonPink))),
	}
}

func downloadFromStatus(st types.DownloadStatus) *DownloadModel {
	d := NewDownloadModel(st.ID, st.Task.URL)
	d.Title = st.Title
	d.Channel = st.Channel
	d.Phase = st.Phase
	d.Status = statusForPhase(st.Phase)
	d.Percent = st.Progress
	d.Downloaded = st.Downloaded
	d.Total = st.TotalSize
	d.Speed = st.Speed
	d.ETA = st.ETA
	d.OutputPath = st.OutputPath
	d.Err = st.Error
	if st.AddedAt > 0 {
		d.AddedAt = time.Unix(st.AddedAt, 0)
	}
	return d
}

func statusForPhase(p types.Phase) string {
	switch p {
	case types.PhasePending:
		return types.StatusQueued
	case types.PhasePaused:
		return types.StatusPaused
	case types.PhaseCompleted:
		return types.StatusCompleted
	case types.PhaseCancelled:
		return types.StatusCancelled
	case types.PhaseFailed:
		return types.StatusError
	}
	return types.StatusStarted
}

// LogLine is one entry of the activity pane.
type LogLine struct {
	Time    time.Time
	Message string
}

type RootModel struct {
	Service  core.DownloadService
	Defaults func() types.TaskDescriptor

	events  <-chan any
	cleanup func()

	downloads []*DownloadModel
	logs      []LogLine

	width     int
	height    int
	state     UIState
	activeTab int
	cursor    int

	input textinput.Model
	help  help.Model

	SpeedHistory []float64

	notification      string
	notificationIsErr bool
	notificationAt    time.Time

	version string
}

// InitialRootModel subscribes to the service's event stream and seeds the
// list with the downloads it already knows about.
func InitialRootModel(ctx context.Context, service core.DownloadService, defaults func() types.TaskDescriptor, version string) (RootModel, error) {
	ch, cleanup, err := service.StreamEvents(ctx)
	if err != nil {
		return RootModel{}, err
	}

	urlInput := textinput.New()
	urlInput.Placeholder = "https://www.youtube.com/watch?v=..."
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	m := RootModel{
		Service:  service,
		Defaults: defaults,
		events:   ch,
		cleanup:  cleanup,
		input:    urlInput,
		help:     help.New(),
		state:    DashboardState,
		version:  version,
	}

	if existing, err := service.List(); err == nil {
		for _, st := range existing {
			m.downloads = append(m.downloads, downloadFromStatus(st))
		}
	}
	return m, nil
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(listenForActivity(m.events), tickCmd())
}

// streamClosedMsg is delivered once the event channel has been closed.
type streamClosedMsg struct{}

type tickMsg time.Time

// actionResultMsg reports the outcome of a service call made off the UI loop.
type actionResultMsg struct {
	text string
	err  error
}

func listenForActivity(sub <-chan any) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub
		if !ok {
			return streamClosedMsg{}
		}
		return msg
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m RootModel) find(id string) (int, *DownloadModel) {
	for i, d := range m.downloads {
		if d.ID == id {
			return i, d
		}
	}
	return -1, nil
}

// visibleDownloads returns the rows of the active tab.
func (m RootModel) visibleDownloads() []*DownloadModel {
	var out []*DownloadModel
	for _, d := range m.downloads {
		if tabFor(d.Phase) == m.activeTab {
			out = append(out, d)
		}
	}
	return out
}

func tabFor(p types.Phase) int {
	switch {
	case p == types.PhasePending:
		return TabQueued
	case p.IsTerminal():
		return TabDone
	}
	return TabActive
}

// GetSelectedDownload returns the download under the cursor, if any.
func (m RootModel) GetSelectedDownload() *DownloadModel {
	visible := m.visibleDownloads()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return nil
	}
	return visible[m.cursor]
}

func (m *RootModel) clampCursor() {
	n := len(m.visibleDownloads())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *RootModel) appendLog(t time.Time, msg string) {
	m.logs = append(m.logs, LogLine{Time: t, Message: msg})
	if len(m.logs) > LogCapacity {
		m.logs = m.logs[len(m.logs)-LogCapacity:]
	}
}

func (m *RootModel) notify(text string, isErr bool) {
	m.notification = text
	m.notificationIsErr = isErr
	m.notificationAt = time.Now()
}

// CalculateStats counts rows per tab.
func (m RootModel) CalculateStats() (active, queued, done int) {
	for _, d := range m.downloads {
		switch tabFor(d.Phase) {
		case TabQueued:
			queued++
		case TabActive:
			active++
		default:
			done++
		}
	}
	return
}

func (m RootModel) totalSpeed() float64 {
	total := 0.0
	for _, d := range m.downloads {
		if d.Phase == types.PhaseDownloading {
			total += d.Speed
		}
	}
	return total
}
