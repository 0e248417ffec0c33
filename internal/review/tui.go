package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tbanks7/applyflow/internal/model"
)

// Lines per record in the list view (title + subtitle + blank separator).
const recordItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	appliedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// Marker performs the Ready to Apply → Applied transition in both tracking
// stores when the user confirms an application.
type Marker interface {
	MarkApplied(ctx context.Context, rec model.ApplicationRecord) error
}

// appliedMsg is sent when an async status update completes.
type appliedMsg struct {
	key string
	err error
}

type reviewModel struct {
	recs     []model.ApplicationRecord
	cursor   int
	listView viewport.Model
	width    int
	height   int
	ready    bool

	view           viewState
	detailViewport viewport.Model

	marker    Marker
	applying  bool
	statusMsg string
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case appliedMsg:
		m.applying = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("mark applied failed: %v", msg.err)
		} else {
			m.statusMsg = "marked as applied"
			for i := range m.recs {
				if m.recs[i].Key == msg.key {
					m.recs[i].Status = model.StatusApplied
					break
				}
			}
		}
		m.recalcContent()
		if m.view == viewDetail {
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	case "o":
		if rec, ok := m.current(); ok {
			openURL(rec.Job.URL)
		}
		return m, nil
	case "a":
		return m.markApplied()
	}

	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if rec, ok := m.current(); ok {
			openURL(rec.Job.URL)
		}
		return m, nil
	case "a":
		return m.markApplied()
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) markApplied() (tea.Model, tea.Cmd) {
	rec, ok := m.current()
	if !ok || m.applying || m.marker == nil {
		return m, nil
	}
	if rec.Status == model.StatusApplied {
		m.statusMsg = "already applied"
		return m, nil
	}

	m.applying = true
	m.statusMsg = "marking as applied..."
	marker := m.marker
	return m, func() tea.Msg {
		err := marker.MarkApplied(context.Background(), rec)
		return appliedMsg{key: rec.Key, err: err}
	}
}

func (m reviewModel) current() (model.ApplicationRecord, bool) {
	if len(m.recs) == 0 {
		return model.ApplicationRecord{}, false
	}
	return m.recs[m.cursor], true
}

func (m *reviewModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.recs)-1, 0))
}

func (m *reviewModel) ensureCursorVisible() {
	cursorTop := m.cursor * recordItemHeight
	cursorBottom := cursorTop + recordItemHeight - 1

	if cursorTop < m.listView.YOffset {
		m.listView.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listView.YOffset+m.listView.Height {
		m.listView.SetYOffset(cursorBottom - m.listView.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.recs) == 0 {
		return m, nil
	}
	m.view = viewDetail
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	width := max(m.width-2, 20)
	// Header (1) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	height := max(m.height-4, 5)

	if !m.ready {
		m.listView = viewport.New(width, height)
		m.ready = true
	} else {
		m.listView.Width = width
		m.listView.Height = height
	}
	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.listView.SetContent(renderRecords(m.recs, m.cursor))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	pending := 0
	for _, rec := range m.recs {
		if rec.Status == model.StatusReadyToApply {
			pending++
		}
	}

	header := headerStyle.Render(fmt.Sprintf(" Applications (%d pending)", pending))
	pane := borderStyle.Width(m.listView.Width).Render(m.listView.View())

	statusText := " ↑/↓ cursor  Enter detail  a applied  o open  q quit"
	if m.statusMsg != "" {
		statusText = " " + m.statusMsg + "   " + statusText
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + pane + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := headerStyle.Render("Application Details")
	content := borderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " a applied  o open  esc back  ↑/↓ scroll  q quit"
	if m.statusMsg != "" {
		statusText = " " + m.statusMsg + "   " + statusText
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	rec, ok := m.current()
	if !ok {
		return "  (no applications)"
	}

	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", rec.Job.Title)
	addField("Company", rec.Job.Company)
	addField("Location", rec.Job.Location)
	addField("Source", rec.Job.Source)
	addField("Status", string(rec.Status))
	b.WriteByte('\n')
	addField("Generated", rec.GeneratedAt.Format("2006-01-02 15:04"))
	addField("Resume", rec.ResumePath)
	addField("Cover Letter", rec.CoverLetterPath)
	addField("Output Dir", rec.OutputDir)
	b.WriteByte('\n')
	addField("Job URL", rec.Job.URL)

	if strings.HasPrefix(m.statusMsg, "mark applied failed") {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.statusMsg) + "\n")
	}
	return b.String()
}

func renderRecords(recs []model.ApplicationRecord, cursor int) string {
	if len(recs) == 0 {
		return "  (no applications)"
	}

	var b strings.Builder
	for i, rec := range recs {
		titleSt := titleStyle
		subtitleSt := subtitleStyle
		prefix := "  "
		if i == cursor {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(fmt.Sprintf("%s — %s", rec.Job.Company, rec.Job.Title)))
		b.WriteByte('\n')

		status := string(rec.Status)
		if rec.Status == model.StatusApplied {
			status = appliedStyle.Render(status)
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(rec.GeneratedAt.Format("2006-01-02")) + "  " + status)
		b.WriteByte('\n')

		if i < len(recs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sortByGeneratedAt(recs []model.ApplicationRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].GeneratedAt.After(recs[j].GeneratedAt)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the interactive review TUI over the given records, newest
// first. marker may be nil, in which case the 'a' key is inert.
func Run(recs []model.ApplicationRecord, marker Marker) error {
	sortByGeneratedAt(recs)

	m := reviewModel{recs: recs, marker: marker}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
