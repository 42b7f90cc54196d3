package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var graphBlocks = []string{" ", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderSpeedGraph draws data as right-aligned bars over a dashed grid.
// Values are scaled against maxVal; the newest sample is the rightmost column.
func renderSpeedGraph(data []float64, width, height int, maxVal float64, color lipgloss.Color) string {
	if width < 1 || height < 1 {
		return ""
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	gridStyle := lipgloss.NewStyle().Foreground(ColorGray)
	barStyle := lipgloss.NewStyle().Foreground(color)

	rows := make([][]string, height)
	for i := range rows {
		rows[i] = make([]string, width)
		for j := range rows[i] {
			if i%2 == 0 {
				rows[i][j] = gridStyle.Render("╌")
			} else {
				rows[i][j] = " "
			}
		}
	}

	visible := data
	if len(visible) > width {
		visible = visible[len(visible)-width:]
	}
	offset := width - len(visible)

	for x, val := range visible {
		if val <= 0 {
			continue
		}
		pct := val / maxVal
		if pct > 1 {
			pct = 1
		}
		subBlocks := pct * float64(height) * 8

		for y := 0; y < height; y++ {
			rowValue := subBlocks - float64(y*8)
			if rowValue <= 0 {
				break
			}
			char := "█"
			if rowValue < 8 {
				char = graphBlocks[int(rowValue)]
			}
			rows[height-1-y][offset+x] = barStyle.Render(char)
		}
	}

	var s strings.Builder
	for i, row := range rows {
		s.WriteString(strings.Join(row, ""))
		if i < height-1 {
			s.WriteRune('\n')
		}
	}
	return s.String()
}

// graphCeiling picks a y-axis maximum with some headroom above the peak.
func graphCeiling(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 1024 * 1024
	}
	return peak * 1.1
}
