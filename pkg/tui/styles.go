package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPurple      = lipgloss.Color("#7D56F4")
	ColorGreen       = lipgloss.Color("#25A065")
	ColorBlue        = lipgloss.Color("#4285F4")
	ColorRed         = lipgloss.Color("#E05252")
	ColorYellow      = lipgloss.Color("#E5C07B")
	ColorGray        = lipgloss.Color("#626262")
	ColorGrayDim     = lipgloss.Color("#404040")
	ColorWhite       = lipgloss.Color("#FFFFFF")
	ColorOffWhite    = lipgloss.Color("#D0D0D0")
	ColorMagenta     = lipgloss.Color("#C678DD")
	ColorSelectionBg = lipgloss.Color("#2D3B4D")
	ColorCyan        = lipgloss.Color("#56B6C2")
	ColorOrange      = lipgloss.Color("#D19A66")
	ColorFilterBg    = lipgloss.Color("#1E1A2E")
)

// GoalColors is the cycle used by the color key. The empty string clears
// the goal's color.
var GoalColors = []string{"", "#E05252", "#D19A66", "#E5C07B", "#25A065", "#56B6C2", "#4285F4", "#C678DD"}

// NextColor returns the color after current in GoalColors. Unknown colors
// restart the cycle.
func NextColor(current string) string {
	for i, c := range GoalColors {
		if c == current {
			return GoalColors[(i+1)%len(GoalColors)]
		}
	}
	return GoalColors[0]
}

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)

	HeaderCountStyle = lipgloss.NewStyle().
				Foreground(ColorGray)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FilterBarStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorFilterBg)
)

// Tree item styles
var (
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorSelectionBg)

	AchievedStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	PendingStyle = lipgloss.NewStyle().
			Foreground(ColorOffWhite)

	OverdueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	DeadlineStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	IDStyle = lipgloss.NewStyle().
		Foreground(ColorGray)

	DepthIndent = "  "
)

// Status line styles
var (
	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	RejectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorOrange)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPurple).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)
)

// Input styles
var (
	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorPurple).
				Bold(true)
)

// Status icons
const (
	IconAchieved  = "✓"
	IconPending   = "○"
	IconExpanded  = "▼"
	IconCollapsed = "▶"
	IconColor     = "●"
)
