package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/identity"
	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/taskdeck"
)

// Deps carries everything the TUI needs from the application.
type Deps struct {
	App  *taskdeck.App
	User identity.User
}

type feedMsg []task.Task

type connectivityMsg struct {
	online bool
}

type noticeMsg struct {
	level   notify.Level
	message string
}

type syncDoneMsg struct {
	synced  int
	deleted int
	failed  int
}

// Model is the root Bubble Tea model: a live task list with inline add,
// keyboard reordering, and a connectivity status bar.
type Model struct {
	deps Deps
	ctx  context.Context
	keys keyMap

	tasks  []task.Task
	cursor int
	online bool
	notice string

	adding bool
	input  textinput.Model

	width  int
	height int

	feedCh chan []task.Task
	connCh chan bool
	noteCh chan noticeMsg
}

// New creates the root model and bridges bus events into Bubble Tea
// messages. ctx bounds every service call the model makes.
func New(ctx context.Context, deps Deps) Model {
	input := textinput.New()
	input.Placeholder = "What needs doing?"
	input.CharLimit = 200

	m := Model{
		deps:   deps,
		ctx:    ctx,
		keys:   defaultKeyMap(),
		tasks:  deps.App.Feed.Tasks(),
		online: deps.App.Monitor.Online(),
		input:  input,
		connCh: make(chan bool, 8),
		noteCh: make(chan noticeMsg, 8),
	}
	m.feedCh = toPlainChannel(deps.App.Feed.Updates(ctx))

	deps.App.Bus.SubscribeConnectivityChanged(func(p eventbus.ConnectivityChangedPayload) {
		select {
		case m.connCh <- p.Online:
		default:
		}
	})
	deps.App.Bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		select {
		case m.noteCh <- noticeMsg{level: p.Level, message: p.Message}:
		default:
		}
	})

	return m
}

// toPlainChannel re-buffers the feed's receive-only channel so the wait
// command can keep a single channel field.
func toPlainChannel(in <-chan []task.Task) chan []task.Task {
	out := make(chan []task.Task, 8)
	go func() {
		for tasks := range in {
			out <- tasks
		}
		close(out)
	}()
	return out
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForFeed(), m.waitForConnectivity(), m.waitForNotice())
}

func (m Model) waitForFeed() tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-m.feedCh
		if !ok {
			return nil
		}
		return feedMsg(tasks)
	}
}

func (m Model) waitForConnectivity() tea.Cmd {
	return func() tea.Msg {
		online, ok := <-m.connCh
		if !ok {
			return nil
		}
		return connectivityMsg{online: online}
	}
}

func (m Model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		note, ok := <-m.noteCh
		if !ok {
			return nil
		}
		return note
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case feedMsg:
		m.tasks = msg
		m.clampCursor()
		return m, m.waitForFeed()

	case connectivityMsg:
		m.online = msg.online
		return m, m.waitForConnectivity()

	case noticeMsg:
		m.notice = msg.message
		return m, m.waitForNotice()

	case syncDoneMsg:
		if msg.failed > 0 {
			m.notice = fmt.Sprintf("sync: %d failed", msg.failed)
		} else {
			m.notice = fmt.Sprintf("sync: %d updated, %d removed", msg.synced, msg.deleted)
		}
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		title := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Reset()
		if title == "" {
			return m, nil
		}
		return m, m.createTask(title)
	case tea.KeyEsc:
		m.adding = false
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveUp):
		if m.cursor > 0 {
			active, over := m.tasks[m.cursor].ID, m.tasks[m.cursor-1].ID
			m.deps.App.Reorder.HandleDragEnd(active, over)
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveDown):
		if m.cursor < len(m.tasks)-1 {
			active, over := m.tasks[m.cursor].ID, m.tasks[m.cursor+1].ID
			m.deps.App.Reorder.HandleDragEnd(active, over)
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.current(); ok {
			return m, m.setCompleted(t.ID, !t.Completed)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.current(); ok {
			return m, m.deleteTask(t.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Sync):
		return m, m.runSync()
	}

	return m, nil
}

func (m Model) current() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return task.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) createTask(title string) tea.Cmd {
	return func() tea.Msg {
		// Create never surfaces connectivity failures, only validation.
		if _, err := m.deps.App.Tasks.Create(m.ctx, m.deps.User.ID, task.Draft{Title: title}); err != nil {
			return noticeMsg{level: notify.LevelError, message: err.Error()}
		}
		return nil
	}
}

func (m Model) setCompleted(id string, completed bool) tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.App.Tasks.SetCompleted(m.ctx, id, completed); err != nil {
			return noticeMsg{level: notify.LevelError, message: err.Error()}
		}
		return nil
	}
}

func (m Model) deleteTask(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.App.Tasks.Delete(m.ctx, id); err != nil {
			return noticeMsg{level: notify.LevelError, message: err.Error()}
		}
		return nil
	}
}

func (m Model) runSync() tea.Cmd {
	return func() tea.Msg {
		result, err := m.deps.App.Syncer.Sync(m.ctx, m.deps.User.ID)
		if err != nil {
			return noticeMsg{level: notify.LevelError, message: err.Error()}
		}
		return syncDoneMsg{synced: result.Synced, deleted: result.Deleted, failed: result.Failed}
	}
}
