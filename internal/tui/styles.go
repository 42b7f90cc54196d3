package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Dracula palette
	ColorNeonPurple = lipgloss.Color("#bd93f9")
	ColorNeonPink   = lipgloss.Color("#ff79c6")
	ColorNeonCyan   = lipgloss.Color("#8be9fd")
	ColorGray       = lipgloss.Color("#44475a")
	ColorLightGray  = lipgloss.Color("#6272a4")
	ColorText       = lipgloss.Color("#f8f8f2")

	// Download states
	ColorStateDownloading = lipgloss.Color("#50fa7b")
	ColorStatePaused      = lipgloss.Color("#ffb86c")
	ColorStateError       = lipgloss.Color("#ff5555")
	ColorStateDone        = lipgloss.Color("#bd93f9")
	ColorStateQueued      = lipgloss.Color("#6272a4")

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true)

	StatsLabelStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Width(10)

	StatsValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(DefaultPaddingY, DefaultPaddingX)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true).
			Underline(true).
			Padding(DefaultPaddingY, DefaultPaddingX)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	LogTimeStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray)

	NotificationStyle = lipgloss.NewStyle().
				Foreground(ColorNeonCyan).
				Bold(true)

	ErrorNotificationStyle = lipgloss.NewStyle().
				Foreground(ColorStateError).
				Bold(true)
)
