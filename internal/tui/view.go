package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

const ListWidthRatio = 0.6

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.state == InputState {
		labelStyle := lipgloss.NewStyle().Width(6).Foreground(ColorLightGray)
		content := lipgloss.JoinVertical(lipgloss.Left,
			"",
			lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render("URL:"), m.input.View()),
			"",
			lipgloss.NewStyle().Foreground(ColorLightGray).Render("Uses the default format, resolution and destination."),
			"",
			m.help.View(InputKeys),
		)
		padded := lipgloss.NewStyle().Padding(0, 2).Render(content)
		box := renderBtopBox("Add Download", padded, InputWidth+14, 9, ColorNeonPink, false)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	if m.state == DetailState {
		if d := m.GetSelectedDownload(); d != nil {
			w := min(m.width-4, 90)
			box := renderBtopBox("Download Details", renderFocusedDetails(d, w-2), w, 20, ColorNeonPurple, false)
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
	}

	availableHeight := m.height - 2 // footer + margin
	availableWidth := m.width

	leftWidth := int(float64(availableWidth) * ListWidthRatio)
	rightWidth := availableWidth - leftWidth

	bodyHeight := availableHeight - HeaderHeight - LogPaneHeight
	if bodyHeight < 12 {
		bodyHeight = 12
	}
	graphHeight := bodyHeight / 3
	if graphHeight < 6 {
		graphHeight = 6
	}
	detailHeight := bodyHeight - graphHeight

	active, queued, done := m.CalculateStats()

	// --- HEADER ---
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		LogoStyle.Render("▶ tubeq"),
		lipgloss.NewStyle().Foreground(ColorLightGray).Render(" "+m.version),
		lipgloss.NewStyle().Foreground(ColorNeonCyan).PaddingLeft(4).Render(
			fmt.Sprintf("%d active · %d queued · %d done · %s", active, queued, done, utils.FormatSpeed(m.totalSpeed())),
		),
	)
	headerBox := lipgloss.NewStyle().Height(HeaderHeight).Padding(1, 2).Render(header)

	// --- DOWNLOAD LIST ---
	tabBar := renderTabs(m.activeTab, active, queued, done)
	listContentHeight := bodyHeight - 5
	var listContent string
	visible := m.visibleDownloads()
	if len(visible) == 0 {
		listContent = lipgloss.Place(leftWidth-6, listContentHeight, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("No downloads"))
	} else {
		listContent = m.renderList(visible, leftWidth-6, listContentHeight)
	}
	listInner := lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left, tabBar, "", listContent))
	listBox := renderBtopBox("Downloads", listInner, leftWidth, bodyHeight, ColorNeonPink, true)

	// --- SPEED GRAPH ---
	graphWidth := rightWidth - 4
	graphContentHeight := graphHeight - 3
	ceiling := graphCeiling(m.SpeedHistory)
	current := 0.0
	if len(m.SpeedHistory) > 0 {
		current = m.SpeedHistory[len(m.SpeedHistory)-1]
	}
	graphContent := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Width(graphWidth).Align(lipgloss.Right).Foreground(ColorNeonPink).Bold(true).
			Render("Current: "+utils.FormatSpeed(current)),
		lipgloss.NewStyle().MarginLeft(1).Render(renderSpeedGraph(m.SpeedHistory, graphWidth-1, graphContentHeight, ceiling, ColorNeonPink)),
	)
	graphBox := renderBtopBox("Network Activity", graphContent, rightWidth, graphHeight, ColorNeonCyan, false)

	// --- DETAILS ---
	var detailContent string
	if d := m.GetSelectedDownload(); d != nil {
		detailContent = renderFocusedDetails(d, rightWidth-2)
	} else {
		detailContent = lipgloss.Place(rightWidth-4, detailHeight-2, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("No Download Selected"))
	}
	detailBox := renderBtopBox("Details", detailContent, rightWidth, detailHeight, ColorGray, true)

	// --- ACTIVITY LOG ---
	logBox := renderBtopBox("Activity", m.renderLogs(availableWidth-4, LogPaneHeight-2), availableWidth, LogPaneHeight, ColorNeonPurple, false)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listBox,
		lipgloss.JoinVertical(lipgloss.Left, graphBox, detailBox),
	)

	var footer string
	if m.notification != "" {
		style := NotificationStyle
		if m.notificationIsErr {
			style = ErrorNotificationStyle
		}
		footer = lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, style.Render(m.notification))
	} else {
		footer = lipgloss.NewStyle().Padding(0, 1).Render(m.help.View(DashboardKeys))
	}

	return lipgloss.JoinVertical(lipgloss.Left, headerBox, body, logBox, footer)
}

// renderList draws one line per download, scrolled so the cursor stays visible.
func (m RootModel) renderList(rows []*DownloadModel, width, height int) string {
	if height < 1 {
		height = 1
	}
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(rows))

	var lines []string
	for i := start; i < end; i++ {
		d := rows[i]
		right := fmt.Sprintf("%5.1f%%  %10s", d.Percent, utils.FormatSpeed(d.Speed))
		titleWidth := width - lipgloss.Width(right) - 6
		if titleWidth < 8 {
			titleWidth = 8
		}
		title := d.Title
		if title == types.PlaceholderTitle {
			title = d.URL
		}
		line := fmt.Sprintf("%s %-*s %s", statusIcon(d.Phase), titleWidth, truncateString(title, titleWidth-3), right)
		if i == m.cursor {
			lines = append(lines, SelectedItemStyle.Render("▸ "+line))
		} else {
			lines = append(lines, ItemStyle.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

// renderLogs shows the newest lines that fit.
func (m RootModel) renderLogs(width, height int) string {
	logs := m.logs
	if len(logs) > height {
		logs = logs[len(logs)-height:]
	}
	var lines []string
	for _, l := range logs {
		stamp := LogTimeStyle.Render(l.Time.Format("15:04:05"))
		lines = append(lines, " "+stamp+" "+truncateString(l.Message, width-12))
	}
	return strings.Join(lines, "\n")
}

func renderFocusedDetails(d *DownloadModel, w int) string {
	progressWidth := w - 12
	if progressWidth < 20 {
		progressWidth = 20
	}
	d.progress.Width = progressWidth
	progView := d.progress.ViewAs(d.Percent / 100)

	contentWidth := w - 6
	divider := lipgloss.NewStyle().Foreground(ColorGray).Render(strings.Repeat("─", max(contentWidth, 1)))

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render(label), StatsValueStyle.Render(value))
	}

	info := lipgloss.JoinVertical(lipgloss.Left,
		row("Title:", truncateString(d.Title, contentWidth-14)),
		row("Channel:", truncateString(d.Channel, contentWidth-14)),
		row("Status:", getDownloadStatus(d)),
	)

	stats := lipgloss.JoinVertical(lipgloss.Left,
		row("Size:", fmt.Sprintf("%s / %s", utils.FormatSize(d.Downloaded), utils.FormatSize(d.Total))),
		row("Speed:", utils.FormatSpeed(d.Speed)),
		row("ETA:", utils.FormatETA(d.ETA)),
		row("Added:", utils.FormatAge(d.AddedAt.Unix())),
	)

	tail := row("URL:", lipgloss.NewStyle().Foreground(ColorLightGray).Render(truncateString(d.URL, contentWidth-14)))
	if d.OutputPath != "" {
		tail = lipgloss.JoinVertical(lipgloss.Left, tail, row("File:", truncateString(d.OutputPath, contentWidth-14)))
	}
	if d.Err != "" {
		tail = lipgloss.JoinVertical(lipgloss.Left, tail,
			row("Error:", lipgloss.NewStyle().Foreground(ColorStateError).Render(truncateString(d.Err, contentWidth-14))))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		info,
		divider,
		lipgloss.NewStyle().MarginLeft(1).Render(progView),
		divider,
		stats,
		divider,
		tail,
	)
	return lipgloss.NewStyle().Padding(0, 2).Render(content)
}

func statusIcon(p types.Phase) string {
	switch p {
	case types.PhasePending:
		return lipgloss.NewStyle().Foreground(ColorStateQueued).Render("o")
	case types.PhaseResolving:
		return lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("…")
	case types.PhaseDownloading:
		return lipgloss.NewStyle().Foreground(ColorStateDownloading).Render("⬇")
	case types.PhasePaused:
		return lipgloss.NewStyle().Foreground(ColorStatePaused).Render("⏸")
	case types.PhaseCompleted:
		return lipgloss.NewStyle().Foreground(ColorStateDone).Render("✔")
	case types.PhaseCancelled:
		return lipgloss.NewStyle().Foreground(ColorLightGray).Render("⊘")
	}
	return lipgloss.NewStyle().Foreground(ColorStateError).Render("✖")
}

func getDownloadStatus(d *DownloadModel) string {
	style := lipgloss.NewStyle()
	switch d.Phase {
	case types.PhaseFailed:
		return style.Foreground(ColorStateError).Render("✖ " + d.Status)
	case types.PhaseCompleted:
		return style.Foreground(ColorStateDone).Render("✔ " + d.Status)
	case types.PhasePaused:
		return style.Foreground(ColorStatePaused).Render("⏸ " + d.Status)
	case types.PhasePending:
		return style.Foreground(ColorStateQueued).Render("o " + d.Status)
	case types.PhaseCancelled:
		return style.Foreground(ColorLightGray).Render("⊘ " + d.Status)
	}
	return style.Foreground(ColorStateDownloading).Render("⬇ " + d.Status)
}

func truncateString(s string, i int) string {
	if i < 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) > i {
		return string(runes[:i]) + "..."
	}
	return s
}

func renderTabs(activeTab, activeCount, queuedCount, doneCount int) string {
	tabs := []struct {
		Label string
		Count int
	}{
		{"Queued", queuedCount},
		{"Active", activeCount},
		{"Done", doneCount},
	}
	var rendered []string
	for i, t := range tabs {
		style := TabStyle
		if i == activeTab {
			style = ActiveTabStyle
		}
		rendered = append(rendered, style.Render(fmt.Sprintf("%s (%d)", t.Label, t.Count)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderBtopBox creates a btop-style box with the title embedded in the top
// border. titleRight puts the title at the right end instead of the left.
//
//	╭─ TITLE ──────────╮   ╭────────── TITLE ─╮
func renderBtopBox(title string, content string, width, height int, borderColor lipgloss.Color, titleRight bool) string {
	const (
		topLeft     = "╭"
		topRight    = "╮"
		bottomLeft  = "╰"
		bottomRight = "╯"
		horizontal  = "─"
		vertical    = "│"
	)

	innerWidth := width - 2
	if innerWidth < 1 {
		innerWidth = 1
	}

	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)

	titleText := fmt.Sprintf(" %s ", title)
	remaining := innerWidth - lipgloss.Width(titleText) - 1
	if remaining < 0 {
		remaining = 0
	}

	var top string
	if titleRight {
		top = border.Render(topLeft+strings.Repeat(horizontal, remaining)) +
			titleStyle.Render(titleText) +
			border.Render(horizontal+topRight)
	} else {
		top = border.Render(topLeft+horizontal) +
			titleStyle.Render(titleText) +
			border.Render(strings.Repeat(horizontal, remaining)+topRight)
	}

	bottom := border.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	contentLines := strings.Split(content, "\n")
	innerHeight := height - 2

	wrapped := make([]string, 0, max(innerHeight, 0))
	for i := 0; i < innerHeight; i++ {
		line := ""
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lineWidth := lipgloss.Width(line)
		if lineWidth < innerWidth {
			line += strings.Repeat(" ", innerWidth-lineWidth)
		} else if lineWidth > innerWidth {
			line = lipgloss.NewStyle().MaxWidth(innerWidth).Render(line)
		}
		wrapped = append(wrapped, border.Render(vertical)+line+border.Render(vertical))
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, strings.Join(wrapped, "\n"), bottom)
}
