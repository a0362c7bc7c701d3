package tui

import (
	"fmt"
	"strings"

	"github.com/colonyops/taskdeck/internal/core/task"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("taskdeck"))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(styleHelp.Render("No tasks yet. Press a to add one."))
		b.WriteString("\n")
	}

	for i, t := range m.tasks {
		b.WriteString(m.renderTask(i, t))
		b.WriteString("\n")
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderTask(i int, t task.Task) string {
	cursor := "  "
	if i == m.cursor && !m.adding {
		cursor = styleCursor.Render("> ")
	}

	box := "[ ]"
	if t.Completed {
		box = "[" + iconDone + "]"
	}

	title := t.Title
	if t.Completed {
		title = styleDone.Render(title)
	}

	line := fmt.Sprintf("%s%s %s", cursor, box, title)

	if t.Due != nil {
		line += " " + styleDue.Render(t.Due.Format("Jan 2 15:04"))
	}
	if len(t.Subtasks) > 0 {
		done := 0
		for _, sub := range t.Subtasks {
			if sub.Completed {
				done++
			}
		}
		line += " " + styleHelp.Render(fmt.Sprintf("(%d/%d)", done, len(t.Subtasks)))
	}
	if t.SyncStatus == task.StatusPending {
		line += " " + stylePending.Render(iconPending)
	}

	return line
}

func (m Model) renderStatusBar() string {
	conn := styleOnline.Render("online")
	if !m.online {
		conn = styleOffline.Render("offline")
	}

	parts := []string{conn, styleStatusBar.Render(fmt.Sprintf("%d tasks", len(m.tasks)))}
	if m.notice != "" {
		parts = append(parts, styleNotice.Render(m.notice))
	}

	return strings.Join(parts, styleStatusBar.Render(" "+iconDot+" "))
}

func (m Model) renderHelp() string {
	var parts []string
	for _, binding := range m.keys.helpLine() {
		h := binding.Help()
		parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	style := styleHelp
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(strings.Join(parts, "  "))
}
