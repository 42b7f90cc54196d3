package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case events.DownloadQueuedMsg:
		if _, d := m.find(msg.DownloadID); d == nil {
			m.downloads = append(m.downloads, NewDownloadModel(msg.DownloadID, msg.URL))
		}
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadStartedMsg:
		if _, d := m.find(msg.DownloadID); d != nil {
			d.Phase = types.PhaseResolving
			d.Status = types.StatusStarted
		}
		m.clampCursor()
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadInfoMsg:
		if _, d := m.find(msg.DownloadID); d != nil {
			d.Title = msg.Title
			d.Channel = msg.Channel
			if d.Phase == types.PhaseResolving {
				d.Phase = types.PhaseDownloading
			}
		}
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadStatusMsg:
		if _, d := m.find(msg.DownloadID); d != nil {
			d.Phase = msg.Phase
			d.Status = msg.Status
			if msg.Phase != types.PhaseDownloading {
				d.Speed = 0
				d.ETA = 0
			}
		}
		m.clampCursor()
		cmds = append(cmds, listenForActivity(m.events))

	case events.ProgressMsg:
		if _, d := m.find(msg.DownloadID); d != nil && !d.Phase.IsTerminal() {
			d.Percent = msg.Percent
			d.Downloaded = msg.Downloaded
			d.Total = msg.Total
			d.Speed = msg.Speed
			d.ETA = msg.ETA
			cmds = append(cmds, d.progress.SetPercent(msg.Percent/100))
		}
		cmds = append(cmds, listenForActivity(m.events))

	case events.LogMsg:
		t := msg.Time
		if t.IsZero() {
			t = time.Now()
		}
		m.appendLog(t, msg.Message)
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadCompleteMsg:
		if _, d := m.find(msg.DownloadID); d != nil {
			d.Phase = types.PhaseCompleted
			d.Percent = 100
			d.OutputPath = msg.OutputPath
			d.Speed = 0
			d.ETA = 0
			cmds = append(cmds, d.progress.SetPercent(1.0))
		}
		m.clampCursor()
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadErrorMsg:
		if _, d := m.find(msg.DownloadID); d != nil {
			d.Phase = types.PhaseFailed
			if msg.Err != nil {
				d.Err = msg.Err.Error()
			}
		}
		m.clampCursor()
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadRemovedMsg:
		if i, _ := m.find(msg.DownloadID); i >= 0 {
			m.downloads = append(m.downloads[:i], m.downloads[i+1:]...)
		}
		m.clampCursor()
		cmds = append(cmds, listenForActivity(m.events))

	case events.ScheduleFiredMsg:
		if msg.Err != "" {
			m.notify("Schedule failed: "+msg.Err, true)
		} else {
			m.notify("Scheduled download started: "+utils.Truncate(msg.URL, 60), false)
		}
		cmds = append(cmds, listenForActivity(m.events))

	case streamClosedMsg:
		m.notify("Event stream closed", true)

	case actionResultMsg:
		if msg.err != nil {
			m.notify(msg.err.Error(), true)
		} else if msg.text != "" {
			m.notify(msg.text, false)
		}

	case tickMsg:
		m.SpeedHistory = append(m.SpeedHistory, m.totalSpeed())
		if len(m.SpeedHistory) > SpeedHistoryLength {
			m.SpeedHistory = m.SpeedHistory[len(m.SpeedHistory)-SpeedHistoryLength:]
		}
		if m.notification != "" && time.Since(m.notificationAt) > NotificationTTL {
			m.notification = ""
		}
		cmds = append(cmds, tickCmd())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Propagate messages to progress bars
	for _, d := range m.downloads {
		newModel, cmd := d.progress.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			d.progress = p
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case InputState:
		switch {
		case key.Matches(msg, InputKeys.Back):
			m.state = DashboardState
			m.input.Blur()
			return m, nil
		case key.Matches(msg, InputKeys.Submit):
			url := strings.TrimSpace(m.input.Value())
			if url == "" {
				return m, nil
			}
			m.state = DashboardState
			m.input.Blur()
			m.input.SetValue("")
			return m, m.addCmd(url)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case DetailState:
		if msg.String() == "esc" || msg.String() == "enter" || msg.String() == "q" {
			m.state = DashboardState
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, DashboardKeys.Quit):
		if m.cleanup != nil {
			m.cleanup()
		}
		return m, tea.Quit

	case key.Matches(msg, DashboardKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, DashboardKeys.Down):
		if m.cursor < len(m.visibleDownloads())-1 {
			m.cursor++
		}

	case msg.String() == "tab":
		m.activeTab = (m.activeTab + 1) % 3
		m.cursor = 0

	case msg.String() == "shift+tab":
		m.activeTab = (m.activeTab + 2) % 3
		m.cursor = 0

	case key.Matches(msg, DashboardKeys.Details):
		if m.GetSelectedDownload() != nil {
			m.state = DetailState
		}

	case key.Matches(msg, DashboardKeys.Add):
		m.state = InputState
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, DashboardKeys.Toggle):
		d := m.GetSelectedDownload()
		if d == nil {
			return m, nil
		}
		id := d.ID
		if d.Phase == types.PhasePaused {
			return m, m.serviceCmd(func() (string, error) { return "", m.Service.Resume(id) })
		}
		return m, m.serviceCmd(func() (string, error) { return "", m.Service.Pause(id) })

	case key.Matches(msg, DashboardKeys.Cancel):
		d := m.GetSelectedDownload()
		if d == nil {
			return m, nil
		}
		id := d.ID
		return m, m.serviceCmd(func() (string, error) { return "", m.Service.Cancel(id) })

	case key.Matches(msg, DashboardKeys.PauseAll):
		return m, m.serviceCmd(func() (string, error) { return "", m.Service.PauseAll() })

	case key.Matches(msg, DashboardKeys.ResumeAll):
		return m, m.serviceCmd(func() (string, error) { return "", m.Service.ResumeAll() })

	case key.Matches(msg, DashboardKeys.CancelAll):
		return m, m.serviceCmd(func() (string, error) { return "", m.Service.CancelAll() })

	case key.Matches(msg, DashboardKeys.Start):
		return m, m.serviceCmd(func() (string, error) {
			n, err := m.Service.StartQueue()
			if err != nil {
				return "", err
			}
			if n == 0 {
				return "Nothing to start", nil
			}
			return fmt.Sprintf("Started %d queued download(s)", n), nil
		})
	}
	return m, nil
}

// serviceCmd runs fn off the UI loop and reports its outcome.
func (m RootModel) serviceCmd(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		text, err := fn()
		return actionResultMsg{text: text, err: err}
	}
}

func (m RootModel) addCmd(url string) tea.Cmd {
	desc := types.TaskDescriptor{}
	if m.Defaults != nil {
		desc = m.Defaults()
	}
	desc.URL = url
	return m.serviceCmd(func() (string, error) {
		id, err := m.Service.Add(desc)
		if err != nil {
			return "", err
		}
		return "Queued " + utils.ShortID(id), nil
	})
}
