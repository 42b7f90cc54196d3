package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
)

func TestView_Loading(t *testing.T) {
	m := newTestModel(t, newStubService())
	m.width = 0
	assert.Equal(t, "Loading...", m.View())
}

func TestView_Dashboard(t *testing.T) {
	m := newTestModel(t, newStubService())
	m = apply(t, m,
		events.DownloadQueuedMsg{DownloadID: "a", URL: "https://youtu.be/a"},
		events.LogMsg{Message: "Queued: https://youtu.be/a"},
	)

	out := m.View()
	assert.Contains(t, out, "Downloads")
	assert.Contains(t, out, "Network Activity")
	assert.Contains(t, out, "Activity")
	assert.Contains(t, out, "Queued (1)")
	assert.Contains(t, out, "https://youtu.be/a")
	assert.Contains(t, out, "Queued: https://youtu.be/a")
}

func TestView_EmptyList(t *testing.T) {
	m := newTestModel(t, newStubService())
	out := m.View()
	assert.Contains(t, out, "No downloads")
	assert.Contains(t, out, "No Download Selected")
}

func TestView_InputPopup(t *testing.T) {
	m := newTestModel(t, newStubService())
	m = apply(t, m, keyMsg("a"))
	out := m.View()
	assert.Contains(t, out, "Add Download")
	assert.Contains(t, out, "URL:")
}

func TestView_DetailState(t *testing.T) {
	m := newTestModel(t, newStubService())
	m = apply(t, m,
		events.DownloadQueuedMsg{DownloadID: "a", URL: "https://youtu.be/a"},
		events.DownloadStartedMsg{DownloadID: "a"},
		events.DownloadInfoMsg{DownloadID: "a", Title: "A Video", Channel: "Some Channel"},
		events.DownloadErrorMsg{DownloadID: "a"},
	)
	m.activeTab = TabDone
	m = apply(t, m, keyMsg("enter"))
	assert.Equal(t, DetailState, m.state)

	out := m.View()
	assert.Contains(t, out, "Download Details")
	assert.Contains(t, out, "A Video")
	assert.Contains(t, out, "Some Channel")
}

func TestRenderBtopBox(t *testing.T) {
	tests := []struct {
		name       string
		titleRight bool
		wantPrefix string
	}{
		{"title left", false, "╭─ Box "},
		{"title right", true, "╭──"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := renderBtopBox("Box", "hello\nworld", 20, 5, ColorGray, tt.titleRight)
			lines := strings.Split(box, "\n")
			assert.Len(t, lines, 5)
			assert.True(t, strings.HasPrefix(lines[0], tt.wantPrefix), lines[0])
			for _, l := range lines {
				assert.Equal(t, 20, lipgloss.Width(l), l)
			}
			assert.Contains(t, lines[1], "hello")
		})
	}
}

func TestRenderSpeedGraph(t *testing.T) {
	assert.Empty(t, renderSpeedGraph(nil, 0, 3, 1, ColorNeonPink))

	out := renderSpeedGraph([]float64{0, 50, 100}, 10, 2, 100, ColorNeonPink)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, 10, lipgloss.Width(l))
	}
	// The newest sample is full height.
	assert.True(t, strings.HasSuffix(lines[0], "█"))
	assert.True(t, strings.HasSuffix(lines[1], "█"))
}

func TestStatusIcons(t *testing.T) {
	for _, p := range []types.Phase{
		types.PhasePending, types.PhaseResolving, types.PhaseDownloading, types.PhasePaused,
		types.PhaseCompleted, types.PhaseCancelled, types.PhaseFailed,
	} {
		assert.NotEmpty(t, statusIcon(p), p)
	}
}
