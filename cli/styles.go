package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	colorOrange = lipgloss.AdaptiveColor{Light: "#CC6B4E", Dark: "#FFA066"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "#4F7CAC", Dark: "#7FB4CA"}
	colorViolet = lipgloss.AdaptiveColor{Light: "#766B90", Dark: "#938AA9"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#C84053", Dark: "#E82424"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "#6F894E", Dark: "#98BB6C"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#8A8980", Dark: "#727169"}
	colorBorder = lipgloss.AdaptiveColor{Light: "#C7C7C7", Dark: "#54546D"}
)

var (
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	italicStyle  = lipgloss.NewStyle().Italic(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorOrange).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedCell    = cellStyle.Foreground(colorMuted)
)

func init() {
	// Plain output when writing to a file or when the user opts out.
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// NewStyledTable returns a rounded table with a highlighted header row.
// Columns listed in muted are rendered de-emphasized.
func NewStyledTable(muted ...int) *ltable.Table {
	mutedCols := make(map[int]bool, len(muted))
	for _, c := range muted {
		mutedCols[c] = true
	}
	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerStyle
			case mutedCols[col]:
				return mutedCell
			default:
				return cellStyle
			}
		})
}

// Muted renders s de-emphasized.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Success renders s as a positive status.
func Success(s string) string {
	return successStyle.Render(s)
}
