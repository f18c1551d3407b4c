package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	coreapp "compgraph/internal/core/app"
	"compgraph/internal/engine/graph"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)
)

// session is the part of the app the browser drives.
type session interface {
	Graph() *graph.ComponentGraph
	Focus(id string, hops int) (*graph.ComponentGraph, error)
	SetStatus(id, status, errorMessage string) error
	Overlay() *graph.StatusOverlay
}

type keyMap struct {
	Quit   key.Binding
	Focus  key.Binding
	Back   key.Binding
	Status key.Binding
	Open   key.Binding
	Wider  key.Binding
	Closer key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	Focus:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "focus")),
	Back:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Status: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle status")),
	Open:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open source")),
	Wider:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "hops")),
	Closer: key.NewBinding(key.WithKeys("-")),
}

type item struct {
	id, title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + " " + i.desc }

type model struct {
	src      session
	nodeList list.Model
	hops     int

	focusID    string
	focusGraph *graph.ComponentGraph
	focusErr   string

	stats      graph.GraphStats
	cycles     int
	failures   int
	lastUpdate time.Time
	statusLine string
}

type updateMsg struct {
	update coreapp.Update
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func initialModel(src session, hops int) model {
	nodeList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	nodeList.Title = "Components"
	nodeList.SetShowStatusBar(false)
	nodeList.SetFilteringEnabled(true)
	if hops < 0 {
		hops = 2
	}
	return model{src: src, nodeList: nodeList, hops: hops}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.nodeList.FilterState() == list.Filtering {
			break
		}
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.nodeList.SetSize(msg.Width-h, height)
	case updateMsg:
		m.stats = msg.update.Stats
		m.cycles = len(msg.update.Cycles)
		m.failures = len(msg.update.Failures)
		m.lastUpdate = time.Now()
		m.refreshItems()
		if m.focusID != "" {
			m = m.refocus()
		}
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.statusLine = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.statusLine = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	m.nodeList, cmd = m.nodeList.Update(msg)
	return m, cmd
}

func (m *model) refreshItems() {
	g := m.src.Graph()
	overlay := m.src.Overlay()
	degrees := g.Degrees()
	items := make([]list.Item, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		desc := fmt.Sprintf("%s · %s · %d links", n.Type, n.Language, degrees[n.ID])
		if st := overlay.Get(n.ID); st.Status != graph.StatusIdle {
			desc += " · " + string(st.Status)
		}
		items = append(items, item{id: n.ID, title: n.Name, desc: desc})
	}
	m.nodeList.SetItems(items)
}

func (m model) selected() (item, bool) {
	it, ok := m.nodeList.SelectedItem().(item)
	return it, ok
}

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Focus):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.focusID = it.id
		return m.refocus(), nil
	case key.Matches(msg, keys.Back):
		m.focusID = ""
		m.focusGraph = nil
		m.focusErr = ""
		return m, nil
	case key.Matches(msg, keys.Wider):
		m.hops++
		return m.refocus(), nil
	case key.Matches(msg, keys.Closer):
		if m.hops > 0 {
			m.hops--
		}
		return m.refocus(), nil
	case key.Matches(msg, keys.Status):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := nextStatus(m.src.Overlay().Get(it.id).Status)
		if err := m.src.SetStatus(it.id, string(next), ""); err != nil {
			m.statusLine = statusStyle.Render(err.Error())
			return m, nil
		}
		m.statusLine = statusStyle.Render(fmt.Sprintf("%s is now %s", it.title, next))
		m.refreshItems()
		return m, nil
	case key.Matches(msg, keys.Open):
		id := m.focusID
		if id == "" {
			if it, ok := m.selected(); ok {
				id = it.id
			}
		}
		n, ok := m.src.Graph().Node(id)
		if !ok {
			m.statusLine = statusStyle.Render("No source target available.")
			return m, nil
		}
		return m, jumpToSourceCmd(sourceTarget{file: n.FilePath, line: n.Line})
	}

	var cmd tea.Cmd
	m.nodeList, cmd = m.nodeList.Update(msg)
	return m, cmd
}

func (m model) refocus() model {
	if m.focusID == "" {
		return m
	}
	sub, err := m.src.Focus(m.focusID, m.hops)
	if err != nil {
		m.focusGraph = nil
		m.focusErr = err.Error()
		return m
	}
	m.focusGraph = sub
	m.focusErr = ""
	return m
}

func nextStatus(current graph.EditStatus) graph.EditStatus {
	for i, s := range graph.EditStatuses {
		if s == current {
			return graph.EditStatuses[(i+1)%len(graph.EditStatuses)]
		}
	}
	return graph.StatusQueued
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %s | %d components | %d relationships",
		m.lastUpdate.Format("15:04:05"), m.stats.TotalNodes, m.stats.TotalEdges))
	summary := successStyle.Render("no cycles")
	if m.cycles > 0 {
		summary = cycleStyle.Render(fmt.Sprintf("%d cycles", m.cycles))
	}
	if m.failures > 0 {
		summary += " | " + cycleStyle.Render(fmt.Sprintf("%d failed files", m.failures))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Component Graph"), status, summary)
	help := statusStyle.Render(strings.Join([]string{
		keys.Focus.Help().Key + " " + keys.Focus.Help().Desc,
		keys.Back.Help().Key + " " + keys.Back.Help().Desc,
		keys.Wider.Help().Key + " " + keys.Wider.Help().Desc,
		keys.Status.Help().Key + " " + keys.Status.Help().Desc,
		keys.Open.Help().Key + " " + keys.Open.Help().Desc,
		keys.Quit.Help().Key + " " + keys.Quit.Help().Desc,
	}, " · "))

	body := m.nodeList.View()
	if m.focusID != "" {
		body = m.renderFocus()
	}
	if m.statusLine != "" {
		body += "\n\n" + m.statusLine
	}
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func (m model) renderFocus() string {
	if m.focusErr != "" {
		return cycleStyle.Render(m.focusErr)
	}
	g := m.focusGraph
	n, _ := g.Node(m.focusID)
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("%s (%s) within %d hops", n.Name, n.Type, m.hops)) + "\n")
	out, in := g.EdgesOf(m.focusID)
	b.WriteString(labelStyle.Render(fmt.Sprintf("%s:%d", n.FilePath, n.Line)) + "\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%d outgoing, %d incoming", len(out), len(in))) + "\n\n")
	for _, e := range g.Edges {
		src, _ := g.Node(e.Source)
		dst, _ := g.Node(e.Target)
		line := fmt.Sprintf("%s --%s--> %s", src.Name, e.Relationship, dst.Name)
		if len(e.Names) > 0 {
			line += " [" + strings.Join(e.Names, ", ") + "]"
		}
		b.WriteString("  " + line + "\n")
	}
	if len(g.Edges) == 0 {
		b.WriteString("  " + statusStyle.Render("no relationships") + "\n")
	}
	return b.String()
}

type sourceTarget struct {
	file string
	line int
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.HasSuffix(editor, "/vi") || editor == "vi" {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}

func runUI(ctx context.Context, app *coreapp.App, focus string, hops int) error {
	if hops < 0 {
		hops = app.Config.Graph.MaxHops
	}
	m := initialModel(app, hops)
	if focus != "" {
		if id, err := resolveFocus(app.Graph(), focus); err == nil {
			m.focusID = id
		}
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	app.SetUpdateHandler(func(update coreapp.Update) {
		p.Send(updateMsg{update: update})
	})
	defer app.SetUpdateHandler(nil)

	go p.Send(updateMsg{update: app.LastUpdate()})

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
