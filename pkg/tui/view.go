package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stefanpenner/goalgraph/pkg/graph"
)

const minWidth = 40
const minHeight = 10

// View implements tea.Model.
func (m Model) View() string {
	w := max(m.width, minWidth)
	h := max(m.height, minHeight)

	if m.showHelpModal {
		return placeOverlay(m.renderHelpModal(), w, h)
	}
	if m.showDeleteConfirm {
		return placeOverlay(m.renderDeleteModal(), w, h)
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(w))
	b.WriteString("\n")
	headerLines := 2
	if m.family != nil {
		b.WriteString(m.renderFilterBar(w))
		b.WriteString("\n")
		headerLines++
	}
	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")

	footerLines := 2
	contentHeight := h - headerLines - footerLines

	leftWidth := max(20, w/3)
	rightWidth := max(20, w-leftWidth-1)

	leftPanel := m.renderTreePanel(leftWidth, contentHeight)
	rightPanel := m.renderDetailPanel(rightWidth, contentHeight)

	sepColor := ColorGrayDim
	if m.focusedPane == 1 || m.isEditing {
		sepColor = ColorPurple
	}
	sep := lipgloss.NewStyle().Foreground(sepColor).Render("│")
	for i := 0; i < contentHeight; i++ {
		b.WriteString(getLine(leftPanel, i, leftWidth))
		b.WriteString(sep)
		b.WriteString(getLine(rightPanel, i, rightWidth))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(w))

	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := HeaderStyle.Render("Goals")

	total, achieved := 0, 0
	if m.snapshot != nil {
		total, achieved = m.snapshot.Counts()
	}
	stats := HeaderCountStyle.Render(fmt.Sprintf("%d/%d achieved", achieved, total))

	status := ""
	if m.statusMsg != "" && m.now().Before(m.statusTimeout) {
		style := StatusStyle
		if m.statusRejected {
			style = RejectedStyle
		}
		status = style.Render(m.statusMsg) + "  "
	}

	gap := max(1, width-lipgloss.Width(title)-lipgloss.Width(stats)-lipgloss.Width(status))
	return title + strings.Repeat(" ", gap) + status + stats
}

func (m Model) renderFilterBar(width int) string {
	label := fmt.Sprintf(" family of #%d: %d goals  (f to clear)", m.familyOf, len(m.family))
	pad := max(0, width-lipgloss.Width(label))
	return FilterBarStyle.Render(label + strings.Repeat(" ", pad))
}

func (m Model) renderTreePanel(width, height int) string {
	var lines []string

	treeHeight := max(1, height-1)

	if len(m.visibleItems) == 0 {
		lines = append(lines, FooterStyle.Render("No goals yet. Press 'A' to add one."))
	}

	// Scrolling window
	startIdx := 0
	endIdx := len(m.visibleItems)
	if len(m.visibleItems) > treeHeight {
		startIdx = max(0, m.cursor-treeHeight/2)
		endIdx = startIdx + treeHeight
		if endIdx > len(m.visibleItems) {
			endIdx = len(m.visibleItems)
			startIdx = max(0, endIdx-treeHeight)
		}
	}

	for i := startIdx; i < endIdx; i++ {
		item := m.visibleItems[i]
		lines = append(lines, m.renderTreeItem(item, i == m.cursor, width))

		if m.input == inputAddChild && i == m.cursor {
			indent := strings.Repeat(DepthIndent, item.Depth+1)
			lines = append(lines, indent+InputPromptStyle.Render("> ")+m.textInput.View())
		}
	}

	switch m.input {
	case inputAddRoot:
		lines = append(lines, InputPromptStyle.Render("> ")+m.textInput.View())
	case inputDeadline:
		lines = append(lines, InputPromptStyle.Render("deadline: ")+m.textInput.View())
	case inputLink:
		lines = append(lines, InputPromptStyle.Render("parent #")+m.textInput.View())
	}

	for len(lines) < treeHeight {
		lines = append(lines, "")
	}
	if len(lines) > treeHeight {
		lines = lines[:treeHeight]
	}

	if m.opts.DataDir != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorGrayDim).Render(fileHyperlink(m.opts.DataDir)))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderTreeItem(item TreeItem, isSelected bool, width int) string {
	indent := strings.Repeat(DepthIndent, item.Depth)

	expandIcon := "  "
	if item.HasChildren {
		if item.IsExpanded {
			expandIcon = IconExpanded + " "
		} else {
			expandIcon = IconCollapsed + " "
		}
	}

	g := item.Goal
	statusIcon := PendingStyle.Render(IconPending)
	if g.Achieved {
		statusIcon = AchievedStyle.Render(IconAchieved)
	}

	dot := ""
	if g.Color != "" {
		dot = lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color)).Render(IconColor) + " "
	}

	line := indent + expandIcon + statusIcon + " " + dot + item.Name()
	if due := m.deadlineLabel(g); due != "" {
		line += " " + due
	}

	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		line += strings.Repeat(" ", width-lineWidth)
	}
	if isSelected {
		line = SelectedStyle.Render(line)
	}
	return line
}

// deadlineLabel is the short deadline shown next to a goal, red when the
// deadline passed without the goal being achieved.
func (m Model) deadlineLabel(g *graph.Goal) string {
	if g.Deadline == nil {
		return ""
	}
	label := g.Deadline.Local().Format("Jan 2")
	if !g.Achieved && g.Deadline.Before(m.now()) {
		return OverdueStyle.Render(label)
	}
	return DeadlineStyle.Render(label)
}

func (m Model) renderDetailPanel(width, height int) string {
	item, ok := m.selected()
	if !ok {
		return FooterStyle.Render(" Select a goal to view details")
	}

	if m.isEditing {
		header := FooterStyle.Render(fmt.Sprintf(" editing #%d", m.editTarget))
		lines := append([]string{header}, strings.Split(m.editor.View(), "\n")...)
		if len(lines) > height {
			lines = lines[:height]
		}
		return strings.Join(lines, "\n")
	}

	md := GoalMarkdown(item.Goal, m.snapshot)
	rendered := md
	if m.glamourRenderer != nil {
		if out, err := m.glamourRenderer.Render(md); err == nil {
			rendered = out
		}
	}
	rendered = strings.TrimRight(rendered, "\n ")
	lines := strings.Split(rendered, "\n")

	scroll := min(m.detailScroll, len(lines)-1)
	scroll = max(scroll, 0)
	lines = lines[scroll:]
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// GoalMarkdown renders a goal's details, with its parents and children
// taken from s when available.
func GoalMarkdown(g *graph.Goal, s *Snapshot) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# %s\n\n", displayName(g)))

	meta := []string{fmt.Sprintf("**ID:** %d", g.ID)}
	if g.Achieved {
		meta = append(meta, "**Status:** achieved")
	} else {
		meta = append(meta, "**Status:** open")
	}
	if g.Deadline != nil {
		meta = append(meta, "**Deadline:** "+g.Deadline.Local().Format(time.DateOnly))
	}
	if g.Color != "" {
		meta = append(meta, "**Color:** "+g.Color)
	}
	md.WriteString(strings.Join(meta, " | ") + "\n\n")

	if s != nil {
		writeRelatives(&md, "Parents", s.Parents[g.ID], s)
		writeRelatives(&md, "Children", s.Children[g.ID], s)
	}

	if body := strings.TrimSpace(g.Description); body != "" {
		md.WriteString("---\n\n")
		md.WriteString(body)
		md.WriteString("\n")
	}
	return md.String()
}

func writeRelatives(md *strings.Builder, title string, ids []graph.GoalID, s *Snapshot) {
	if len(ids) == 0 {
		return
	}
	md.WriteString("**" + title + ":**\n\n")
	for _, id := range ids {
		if g, ok := s.Goals[id]; ok {
			mark := " "
			if g.Achieved {
				mark = "x"
			}
			md.WriteString(fmt.Sprintf("- [%s] #%d %s\n", mark, id, displayName(g)))
		}
	}
	md.WriteString("\n")
}

func (m Model) renderFooter(width int) string {
	help := m.keys.ShortHelp()
	switch {
	case m.input != inputNone:
		help = "enter confirm  esc cancel"
	case m.isEditing:
		help = "esc save & exit  ctrl+s save  ctrl+c cancel"
	case m.family != nil:
		help = "f clear family filter  " + help
	case m.focusedPane == 1:
		help = "↑↓ scroll details  tab tree  ? help"
	}
	return FooterStyle.Render(help)
}

func (m Model) renderHelpModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(ColorBlue).Width(16)
	descStyle := lipgloss.NewStyle().Foreground(ColorWhite)

	for _, binding := range m.keys.FullHelp() {
		b.WriteString(keyStyle.Render(binding[0]))
		b.WriteString(descStyle.Render(binding[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press Esc or ? to close"))

	return ModalStyle.Render(b.String())
}

func (m Model) renderDeleteModal() string {
	var b strings.Builder

	name := fmt.Sprintf("#%d", m.deleteTarget)
	if m.snapshot != nil {
		if g, ok := m.snapshot.Goals[m.deleteTarget]; ok {
			name = displayName(g)
		}
	}

	b.WriteString(ModalTitleStyle.Render("Delete Goal"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Delete '%s'? Its sub-goals are kept but unlinked.\n\n", name))
	b.WriteString(lipgloss.NewStyle().Foreground(ColorGreen).Render("[y]") + " Yes  ")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorRed).Render("[n]") + " No")

	return ModalStyle.Render(b.String())
}

// fileHyperlink wraps a file path in an OSC 8 terminal hyperlink so it's clickable.
func fileHyperlink(path string) string {
	url := "file://" + path
	return fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", url, path)
}

func getLine(block string, idx int, width int) string {
	lines := strings.Split(block, "\n")
	if idx < len(lines) {
		line := lines[idx]
		lineWidth := lipgloss.Width(line)
		if lineWidth < width {
			return line + strings.Repeat(" ", width-lineWidth)
		}
		return line
	}
	return strings.Repeat(" ", width)
}

func placeOverlay(modal string, width, height int) string {
	modalLines := strings.Split(modal, "\n")

	topPadding := max(0, (height-len(modalLines))/2)
	leftPadding := max(0, (width-lipgloss.Width(modalLines[0]))/2)

	var result strings.Builder
	for i := 0; i < topPadding; i++ {
		result.WriteString("\n")
	}
	for _, line := range modalLines {
		result.WriteString(strings.Repeat(" ", leftPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}
	return result.String()
}
