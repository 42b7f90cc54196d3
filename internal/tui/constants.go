package tui

import "time"

const (
	// Timeouts and Intervals
	TickInterval = 500 * time.Millisecond

	// Input Dimensions
	InputWidth = 60

	// Layout Offsets and Padding
	HeaderHeight           = 3
	LogPaneHeight          = 9
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0

	// Buffers
	LogCapacity        = 200
	SpeedHistoryLength = 120

	// Notifications stay on the footer for this long
	NotificationTTL = 4 * time.Second
)
