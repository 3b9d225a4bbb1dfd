package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

func keyMatches(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}

const pollInterval = 3 * time.Second

// Model is the sync monitor's bubbletea application state.
type Model struct {
	client Client
	keys   keyMap
	help   help.Model
	list   list.Model

	status    StatusView
	queue     QueueView
	lastError error
	pending   bool
	paused    bool
	width     int
	height    int
	quitting  bool
}

// New builds a monitor [Model] bound to client.
func New(client Client) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "pending downloads"
	l.SetShowHelp(false)
	return Model{
		client: client,
		keys:   newKeyMap(),
		help:   help.New(),
		list:   l,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), m.fetchQueue(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg() })
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		status, err := m.client.Status(ctx)
		return statusFetchedMsg(status, err)
	}
}

func (m Model) fetchQueue() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		queue, err := m.client.Queue(ctx)
		return queueFetchedMsg(queue, err)
	}
}

func (m Model) runAction(label string, action func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionDoneMsg(label, action(ctx))
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case Msg:
		return m.handleAppMsg(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case keyMatches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit
	case keyMatches(msg, m.keys.sync):
		m.pending = true
		return m, m.runAction("sync triggered", m.client.SyncNow)
	case keyMatches(msg, m.keys.pause):
		m.paused = !m.paused
		pause := m.paused
		m.pending = true
		return m, m.runAction("pause toggled", func(ctx context.Context) error {
			return m.client.TogglePause(ctx, pause)
		})
	case keyMatches(msg, m.keys.cancel):
		m.pending = true
		return m, m.runAction("download cancelled", m.client.CancelDownload)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleAppMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatusFetched:
		d := msg.data.(statusFetchedData)
		m.lastError = d.err
		if d.err == nil {
			m.status = d.status
		}
		return m, nil

	case MsgQueueFetched:
		d := msg.data.(queueFetchedData)
		m.lastError = d.err
		if d.err == nil {
			m.queue = d.queue
			items := make([]list.Item, 0, len(d.queue.Pending))
			for _, q := range d.queue.Pending {
				items = append(items, queueItem{item: q})
			}
			m.list.SetItems(items)
		}
		return m, nil

	case MsgActionDone:
		d := msg.data.(actionDoneData)
		m.pending = false
		m.lastError = d.err
		return m, tea.Batch(m.fetchStatus(), m.fetchQueue())

	case MsgTick:
		return m, tea.Batch(m.fetchStatus(), m.fetchQueue(), tick())
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.title.Render("sync & download monitor") + "\n\n")
	b.WriteString(m.summaryLine() + "\n")
	b.WriteString(m.downloadLine() + "\n\n")

	if m.lastError != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("error: %v", m.lastError)) + "\n\n")
	}
	if m.pending {
		b.WriteString(styles.warn.Render("working...") + "\n\n")
	}

	b.WriteString(m.list.View() + "\n")
	b.WriteString(m.recentLog())
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) summaryLine() string {
	return fmt.Sprintf(
		"songs %s  artists %s  albums %s  missing %s  downloaded %s",
		styles.ok.Render(fmt.Sprint(m.status.Songs)),
		styles.ok.Render(fmt.Sprint(m.status.Artists)),
		styles.ok.Render(fmt.Sprint(m.status.Albums)),
		styles.warn.Render(fmt.Sprint(m.status.Missing)),
		styles.ok.Render(fmt.Sprint(m.status.Downloaded)),
	)
}

func (m Model) downloadLine() string {
	state := "idle"
	if m.status.Downloading > 0 {
		state = styles.warn.Render("downloading")
	}
	return fmt.Sprintf("status: %s  pending: %d  next run: %s", state, m.queue.TotalPending, humanizeNextRun(m.status.NextRunUTC))
}

// humanizeNextRun renders an RFC3339 timestamp as "5 minutes from now" rather than
// a raw instant, since that's what an operator glancing at the monitor wants.
func humanizeNextRun(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return humanize.Time(t)
}

func (m Model) recentLog() string {
	if len(m.status.Recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.dim.Render("recent events") + "\n")
	for _, e := range m.status.Recent {
		b.WriteString(styles.dim.Render(fmt.Sprintf("  %s  %s", e.TimestampUTC, e.Message)) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
