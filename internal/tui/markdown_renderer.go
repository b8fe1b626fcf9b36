package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/evanschultz/lanes/internal/domain"
)

// markdownRenderer renders markdown for the info overlay and rebuilds the glamour renderer when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown into ANSI-styled text wrapped at width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}

// todoMarkdown formats one todo for the info overlay.
func todoMarkdown(todo domain.Todo, laneTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Todo #%d\n\n", todo.ID)
	fmt.Fprintf(&b, "%s\n\n", todo.Text)
	fmt.Fprintf(&b, "- **Owner:** %d\n", todo.UserID)
	fmt.Fprintf(&b, "- **Status:** %s\n", laneTitle)
	fmt.Fprintf(&b, "- **Completed:** %t\n", todo.Completed)
	fmt.Fprintf(&b, "- **Origin:** %s\n", todo.Origin)
	if !todo.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Updated:** %s\n", todo.UpdatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}
