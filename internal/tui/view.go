package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
)

// Layout constants shared by rendering and mouse hit testing.
const (
	headerLines  = 2
	columnChrome = 4
	laneOverhead = 7
)

var (
	accentColor  = lipgloss.Color("62")
	mutedColor   = lipgloss.Color("241")
	dimColor     = lipgloss.Color("239")
	successColor = lipgloss.Color("42")
	errorColor   = lipgloss.Color("203")
	warnColor    = lipgloss.Color("214")
)

// laneAccent returns the border and title color of one lane.
func laneAccent(status domain.Status) color.Color {
	switch status {
	case domain.StatusInProgress:
		return lipgloss.Color("214")
	case domain.StatusCompleted:
		return lipgloss.Color("42")
	default:
		return accentColor
	}
}

// View renders the board.
func (m Model) View() tea.View {
	if m.err != nil {
		return newBoardView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
	}
	if !m.ready {
		return newBoardView("loading...")
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	header := titleStyle.Render("lanes") + statusStyle.Render("  "+m.headerSummary())
	sections := []string{header}
	if m.stale {
		banner := lipgloss.NewStyle().Bold(true).Foreground(warnColor).
			Render("offline: showing the cached board • r to retry")
		sections = append(sections, banner)
	} else {
		sections = append(sections, "")
	}
	sections = append(sections, m.renderLanes())
	content := strings.Join(sections, "\n")

	footer := m.renderFooter()
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(footer)))
	}
	full := content + "\n" + footer

	overlay := m.renderModeOverlay(m.width - 8)
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(m.width - 8)
	}
	if overlay != "" {
		height := lipgloss.Height(full)
		if m.height > 0 {
			height = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, height))
	}
	return newBoardView(full)
}

// newBoardView wraps content in the alt-screen, mouse-enabled view.
func newBoardView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// headerSummary describes the board totals and mode.
func (m Model) headerSummary() string {
	total := 0
	for _, lane := range m.board.Lanes {
		total += len(lane.Todos)
	}
	summary := fmt.Sprintf("%d todos", total)
	if m.mode == modeGrab {
		summary += " • moving #" + fmt.Sprint(m.grab.todo.ID)
	}
	if m.status != "" && m.status != "ready" {
		summary += " • " + m.status
	}
	return summary
}

// renderLanes renders the three lane columns side by side.
func (m Model) renderLanes() string {
	board := m.board
	if m.mode == modeGrab {
		board = m.previewBoard()
	}
	colWidth := m.columnWidth()
	colHeight := m.columnHeight()
	base := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 2).
		MarginRight(1).
		Width(colWidth)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	grabbedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	idStyle := lipgloss.NewStyle().Foreground(mutedColor)

	views := make([]string, 0, len(board.Lanes))
	for laneIdx, lane := range board.Lanes {
		accent := laneAccent(lane.Lane.Status)
		title := lipgloss.NewStyle().Bold(true).Foreground(accent).
			Render(fmt.Sprintf("%s (%d)", lane.Lane.Title, len(m.laneTodos(laneIdx))))

		rows := make([]string, 0, max(1, len(lane.Todos)))
		cursor := -1
		if len(lane.Todos) == 0 {
			rows = append(rows, emptyStyle.Render("(empty)"))
		}
		for idx, todo := range lane.Todos {
			grabbed := m.mode == modeGrab && todo.ID == m.grab.todo.ID
			selected := m.mode != modeGrab && laneIdx == m.selectedLane && idx == m.selectedTodo
			prefix := "   "
			switch {
			case grabbed:
				prefix = "▸  "
			case selected:
				prefix = "│  "
			}
			id := fmt.Sprintf("#%d ", todo.ID)
			text := truncate(todo.Text, max(1, colWidth-len(prefix)-len(id)))
			row := prefix + idStyle.Render(id) + text
			switch {
			case grabbed:
				row = grabbedStyle.Render(prefix + id + text)
			case selected:
				row = selectedStyle.Render(prefix + id + text)
			}
			if grabbed || selected {
				cursor = idx
			}
			rows = append(rows, row)
		}

		window := max(1, colHeight-columnChrome)
		rows = scrollWindow(rows, cursor, window)
		body := fitLines(strings.Join(append([]string{title, ""}, rows...), "\n"), window+2)

		style := base
		if (m.mode == modeGrab && laneIdx == m.grab.toLane) || (m.mode != modeGrab && laneIdx == m.selectedLane) {
			style = style.BorderForeground(accent)
		}
		views = append(views, style.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// previewBoard returns the board as it would look after dropping the grabbed todo.
func (m Model) previewBoard() domain.Board {
	preview := cloneBoard(m.board)
	g := m.grab
	if g.fromLane >= len(preview.Lanes) || g.toLane >= len(preview.Lanes) {
		return preview
	}
	from := preview.Lanes[g.fromLane].Lane.Status
	to := preview.Lanes[g.toLane].Lane.Status
	if _, err := preview.Transfer(from, g.fromIndex, to, g.toIndex); err != nil {
		return cloneBoard(m.board)
	}
	return preview
}

// cloneBoard deep-copies lane slices so previews never alias the live board.
func cloneBoard(b domain.Board) domain.Board {
	out := domain.Board{Lanes: make([]domain.LaneTodos, len(b.Lanes))}
	for idx, lane := range b.Lanes {
		out.Lanes[idx] = domain.LaneTodos{Lane: lane.Lane, Todos: append([]domain.Todo(nil), lane.Todos...)}
	}
	return out
}

// scrollWindow keeps the cursor row visible inside a window of rows.
func scrollWindow(rows []string, cursor, window int) []string {
	if len(rows) <= window {
		return rows
	}
	top := 0
	if cursor >= window {
		top = cursor - window + 1
	}
	top = clamp(top, 0, len(rows)-window)
	return rows[top : top+window]
}

// renderFooter renders the toast line and help bar.
func (m Model) renderFooter() string {
	toast := ""
	if !m.toast.Empty() {
		toast = renderToast(m.toast)
	}
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpView := helpBubble.View(m.keys)
	if m.mode == modeGrab {
		helpView = helpBubble.View(grabKeys{keys: m.keys})
	}
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpView)
	return toast + "\n" + helpLine
}

// renderToast styles one notice by kind.
func renderToast(n app.Notice) string {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	icon := "✓ "
	if n.Kind == app.NoticeError {
		style = style.Foreground(lipgloss.Color("231")).Background(errorColor)
		icon = "✗ "
	} else {
		style = style.Foreground(lipgloss.Color("16")).Background(successColor)
	}
	return style.Render(icon + n.Message)
}

// renderModeOverlay renders the modal for the active mode.
func (m Model) renderModeOverlay(maxWidth int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle := lipgloss.NewStyle().Foreground(mutedColor)
	box := func(minW, maxW int) lipgloss.Style {
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
		if maxWidth > 0 {
			style = style.Width(clamp(maxWidth, minW, maxW))
		}
		return style
	}

	switch m.mode {
	case modeAddTodo, modeEditTodo:
		title := "Add Todo"
		if m.mode == modeEditTodo {
			title = "Edit Todo"
		}
		lines := []string{titleStyle.Render(title), "", m.input.View()}
		if m.formErr != "" {
			lines = append(lines, lipgloss.NewStyle().Foreground(errorColor).Render(m.formErr))
		}
		lines = append(lines, "", hintStyle.Render("enter save • esc cancel"))
		return box(36, 72).Render(strings.Join(lines, "\n"))

	case modeConfirmDelete:
		confirmStyle := hintStyle
		cancelStyle := hintStyle
		if m.confirmChoice == 0 {
			confirmStyle = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
		} else {
			cancelStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
		}
		text := strings.TrimSpace(m.pendingDelete.Text)
		if text == "" {
			text = "(untitled todo)"
		}
		lines := []string{
			titleStyle.Render("Delete Todo"),
			truncate(text, 60),
			"",
			confirmStyle.Render("[ delete ]") + "   " + cancelStyle.Render("[ cancel ]"),
			hintStyle.Render("y confirm • n/esc cancel • h/l choose • enter apply"),
		}
		return box(36, 72).Render(strings.Join(lines, "\n"))

	case modeTodoInfo:
		todo, ok := m.selectedTodoItem()
		if !ok {
			return ""
		}
		width := clamp(maxWidth, 30, 80)
		laneTitle := string(todo.Status)
		if lane, ok := m.board.Lane(todo.Status); ok {
			laneTitle = lane.Lane.Title
		}
		body := m.markdown.render(todoMarkdown(todo, laneTitle), width-4)
		lines := []string{titleStyle.Render("Todo Info"), body, hintStyle.Render("esc close")}
		return box(30, 80).Render(strings.Join(lines, "\n"))

	case modeActivityLog:
		lines := []string{titleStyle.Render("Activity Log")}
		if len(m.activity) == 0 {
			lines = append(lines, hintStyle.Render("(no activity yet)"))
		}
		for idx, event := range m.activity {
			if idx >= activityViewWindow {
				break
			}
			lines = append(lines, formatActivity(event))
		}
		lines = append(lines, hintStyle.Render("esc close"))
		return box(44, 96).Render(strings.Join(lines, "\n"))
	}
	return ""
}

// formatActivity renders one change event as a single row.
func formatActivity(event domain.ChangeEvent) string {
	at := event.OccurredAt.Local().Format("15:04:05")
	target := strings.TrimSpace(event.Summary)
	if target == "" {
		target = "-"
	}
	row := fmt.Sprintf("%s  %-7s %s", at, event.Operation, truncate(target, 42))
	switch event.Operation {
	case domain.ChangeOperationMove:
		row += fmt.Sprintf(" (%s → %s)", event.Metadata["from"], event.Metadata["to"])
	case domain.ChangeOperationSync:
		row += fmt.Sprintf(" (%s todos)", event.Metadata["total"])
	}
	return row
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(maxWidth int) string {
	width := clamp(maxWidth, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("lanes help"),
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Render("space grabs a todo; h/j/k/l pick the drop slot; enter drops"),
		lipgloss.NewStyle().Foreground(mutedColor).Render("press ? or esc to close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// columnWidth returns the inner width of one lane column.
func (m Model) columnWidth() int {
	lanes := max(1, len(m.board.Lanes))
	w := 28
	if m.width > 0 {
		if candidate := (m.width - lanes*laneOverhead) / lanes; candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 20, 48)
}

// columnHeight returns the outer height of one lane column.
func (m Model) columnHeight() int {
	const footerLines = 3
	return max(8, m.height-headerLines-footerLines)
}

// hitTest maps terminal coordinates to a lane and row; row is -1 outside the todo list.
func (m Model) hitTest(x, y int) (int, int, bool) {
	if len(m.board.Lanes) == 0 || x < 0 {
		return 0, 0, false
	}
	lane := x / (m.columnWidth() + laneOverhead)
	if lane >= len(m.board.Lanes) {
		return 0, 0, false
	}
	// border + title + spacer
	row := y - headerLines - 3
	if row < 0 || row >= len(m.laneTodos(lane)) {
		row = -1
	}
	return lane, row, true
}

// clamp bounds v to [minV, maxV]; maxV below minV yields minV.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base on a layered canvas.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

// truncate shortens s to limit runes, ending with an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit == 1 {
		return string(rs[:1])
	}
	return string(rs[:limit-1]) + "…"
}
