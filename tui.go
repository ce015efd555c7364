package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hark/command"
	"hark/controller"
	"hark/processor"
	"hark/shortcut"
)

// TUI message types
type statusMsg struct {
	state   controller.State
	message string
	at      time.Time
}
type flagsMsg struct {
	autoCorrect bool
	condensed   bool
	profile     string
}
type bindingsMsg struct{ bindings map[string]shortcut.Binding }
type tickMsg time.Time

const maxEvents = 6

type event struct {
	at      time.Time
	state   controller.State
	message string
}

type tuiInfo struct {
	mode   string // "[groq whisper-large-v3-turbo | gpt-4o-mini]"
	device string // "mic: default"
}

type tuiModel struct {
	info     tuiInfo
	state    controller.State
	message  string
	since    time.Time // when state last changed
	now      time.Time
	frame    int
	width    int
	height   int
	flags    flagsMsg
	bindings map[string]shortcut.Binding
	events   []event // newest last
}

var spinner = []string{"◐", "◓", "◑", "◒"}

var (
	styleIdle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleRecording  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleProcessing = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	styleInfo       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim        = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleKey        = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleOn         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func stateStyle(s controller.State) lipgloss.Style {
	switch s {
	case controller.Recording:
		return styleRecording
	case controller.Processing:
		return styleProcessing
	case controller.Done:
		return styleDone
	case controller.Error:
		return styleError
	}
	return styleIdle
}

func tuiTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		m.now = time.Time(msg)
		return m, tuiTick()

	case statusMsg:
		if msg.state != m.state {
			m.since = msg.at
		}
		m.state = msg.state
		m.message = msg.message
		m.now = msg.at
		if msg.message != "" && (msg.state != controller.Idle || msg.message == "Cancelled") {
			m.events = append(m.events, event{at: msg.at, state: msg.state, message: msg.message})
			if len(m.events) > maxEvents {
				m.events = m.events[len(m.events)-maxEvents:]
			}
		}

	case flagsMsg:
		m.flags = msg

	case bindingsMsg:
		m.bindings = msg.bindings
	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	style := stateStyle(m.state)
	switch m.state {
	case controller.Recording:
		elapsed := m.now.Sub(m.since).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		return style.Render(fmt.Sprintf("● REC %.1fs", elapsed)) + "  " + styleDim.Render("Esc to cancel")
	case controller.Processing:
		return style.Render(spinner[m.frame%len(spinner)] + " PROCESSING")
	case controller.Done:
		return style.Render("✓ DONE")
	case controller.Error:
		return style.Render("✗ ERROR")
	}
	return style.Render("○ STANDBY")
}

func onOff(v bool) string {
	if v {
		return styleOn.Render("on")
	}
	return styleDim.Render("off")
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var lines []string
	lines = append(lines, m.statusLine())
	if m.message != "" {
		for _, l := range wrapText(m.message, wrapWidth) {
			lines = append(lines, stateStyle(m.state).UnsetBold().Render(l))
		}
	}
	lines = append(lines, "")

	if m.info.mode != "" {
		lines = append(lines, styleInfo.Render(m.info.mode))
	}
	if m.info.device != "" {
		lines = append(lines, styleIdle.Render(m.info.device))
	}
	profile := m.flags.profile
	if profile == "" {
		profile = processor.DefaultProfile
	}
	lines = append(lines, styleIdle.Render("auto-correct: ")+onOff(m.flags.autoCorrect)+
		styleIdle.Render("  condensed: ")+onOff(m.flags.condensed)+
		styleIdle.Render("  profile: "+profile))

	if len(m.events) > 0 {
		lines = append(lines, "", styleInfo.Render("Recent"))
		for _, e := range m.events {
			stamp := styleDim.Render(e.at.Format("15:04:05"))
			text := e.message
			if limit := wrapWidth - 11; len(text) > limit && limit > 3 {
				text = text[:limit-3] + "..."
			}
			lines = append(lines, stamp+" "+stateStyle(e.state).UnsetBold().Render(text))
		}
	}

	lines = append(lines, "")
	for _, id := range command.IDs {
		b := m.bindings[id]
		if b.IsZero() {
			continue
		}
		lines = append(lines, styleKey.Render(fmt.Sprintf("%-18s", b.Label()))+styleDim.Render(" "+command.Title(id)))
	}
	lines = append(lines, styleDim.Render("hark "+version+"  (q to quit)"))

	return lipgloss.NewStyle().
		Width(m.width).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}

// tui is the bubbletea StatusSink. Messages sent before Run fold into the
// initial model; tea.Program.Send would block until the loop starts.
type tui struct {
	mu      sync.Mutex
	model   tuiModel
	prog    *tea.Program
	stopped bool
}

func newTUI(info tuiInfo) *tui {
	now := time.Now()
	return &tui{model: tuiModel{info: info, since: now, now: now}}
}

func (t *tui) send(msg tea.Msg) {
	t.mu.Lock()
	if t.prog == nil {
		m, _ := t.model.Update(msg)
		t.model = m.(tuiModel)
		t.mu.Unlock()
		return
	}
	p := t.prog
	t.mu.Unlock()
	p.Send(msg)
}

func (t *tui) Status(state controller.State, message string) {
	t.send(statusMsg{state: state, message: message, at: time.Now()})
}

func (t *tui) Flags(autoCorrect, condensed bool, profile string) {
	t.send(flagsMsg{autoCorrect: autoCorrect, condensed: condensed, profile: profile})
}

func (t *tui) Bindings(b map[string]shortcut.Binding) {
	t.send(bindingsMsg{bindings: b})
}

// Run blocks until the user quits or Quit is called.
func (t *tui) Run() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.prog = tea.NewProgram(t.model, tea.WithAltScreen())
	p := t.prog
	t.mu.Unlock()
	_, err := p.Run()
	return err
}

func (t *tui) Quit() {
	t.mu.Lock()
	t.stopped = true
	p := t.prog
	t.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
