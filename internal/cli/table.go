package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

// Table renders rows under headers. Rows whose muted(i) is true are dimmed.
func Table(headers []string, rows [][]string, muted func(row int) bool) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case muted != nil && muted(row):
				return mutedStyle
			default:
				return cellStyle
			}
		}).
		Render()
}

// PrintTable writes Table to stdout.
func PrintTable(headers []string, rows [][]string, muted func(row int) bool) {
	fmt.Println(Table(headers, rows, muted))
}
