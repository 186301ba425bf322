package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/viva-core/core"
	"github.com/koscakluka/viva-core/core/events"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	defaultWidth  = 80
	headerHeight  = 4
	footerHeight  = 2
	transcriptPad = 2
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	examinerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	studentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFFF"))
	partialStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	conclusionBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7D56F4")).Padding(0, 1)
)

var timerStyles = map[orchestration.TimerStatus]lipgloss.Style{
	orchestration.TimerNormal:  lipgloss.NewStyle(),
	orchestration.TimerWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")),
	orchestration.TimerUrgent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87")),
}

// sessionControls is the part of the session the UI drives.
type sessionControls interface {
	ToggleMute() bool
	RequestConclusion() error
}

type keyMap struct {
	Mute key.Binding
	End  key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Mute, k.End, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Mute: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		End:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end exam")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type (
	snapshotMsg orchestration.Snapshot
	startedMsg  struct{ err error }
	actionMsg   struct{ err error }
)

type model struct {
	controls sessionControls
	updates  <-chan orchestration.Snapshot
	start    func() error

	student string
	topic   string

	snapshot orchestration.Snapshot
	startErr error
	lastErr  error

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	width    int
}

func newModel(controls sessionControls, updates <-chan orchestration.Snapshot, start func() error, student, topic string) model {
	return model{
		controls: controls,
		updates:  updates,
		start:    start,
		student:  student,
		topic:    topic,
		snapshot: orchestration.Snapshot{SessionState: orchestration.SessionIdle, AudioState: orchestration.AudioIdle},
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		viewport: viewport.New(defaultWidth, 16),
		width:    defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.updates), startSession(m.start))
}

func waitForSnapshot(updates <-chan orchestration.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		snapshot, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snapshot)
	}
}

func startSession(start func() error) tea.Cmd {
	if start == nil {
		return nil
	}
	return func() tea.Msg { return startedMsg{err: start()} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Mute):
			controls := m.controls
			return m, func() tea.Msg {
				controls.ToggleMute()
				return nil
			}
		case key.Matches(msg, m.keys.End):
			if m.snapshot.SessionState.IsTerminal() {
				return m, nil
			}
			controls := m.controls
			return m, func() tea.Msg { return actionMsg{err: controls.RequestConclusion()} }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight-m.conclusionHeight(), 3)
		m.refreshTranscript()
		return m, nil

	case snapshotMsg:
		m.snapshot = orchestration.Snapshot(msg)
		m.refreshTranscript()
		return m, waitForSnapshot(m.updates)

	case startedMsg:
		m.startErr = msg.err
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) refreshTranscript() {
	m.viewport.SetContent(renderTranscript(m.snapshot.Transcript, m.width))
	m.viewport.GotoBottom()
}

func (m model) conclusionHeight() int {
	if m.snapshot.Conclusion == nil {
		return 0
	}
	return lipgloss.Height(renderConclusion(*m.snapshot.Conclusion, m.width))
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Viva"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s", m.topic, m.student)))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if line := m.errorLine(); line != "" {
		b.WriteString(errorStyle.Render(line))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.snapshot.Conclusion != nil {
		b.WriteString(renderConclusion(*m.snapshot.Conclusion, m.width))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m model) statusLine() string {
	snapshot := m.snapshot

	var parts []string
	switch snapshot.SessionState {
	case orchestration.SessionIdle, orchestration.SessionStarting:
		parts = append(parts, m.spinner.View()+" connecting")
	case orchestration.SessionConcluding:
		parts = append(parts, m.spinner.View()+" concluding")
	default:
		parts = append(parts, string(snapshot.SessionState))
	}

	if snapshot.SessionState == orchestration.SessionActive || snapshot.SessionState == orchestration.SessionConcluding {
		parts = append(parts, audioLabel(snapshot.AudioState))
		status := orchestration.TimerStatusFor(snapshot.TimeRemaining)
		parts = append(parts, timerStyles[status].Render(orchestration.FormatTime(snapshot.TimeRemaining)))
	}
	if snapshot.Muted {
		parts = append(parts, errorStyle.Render("muted"))
	}
	if snapshot.ReconnectAttempts > 0 {
		parts = append(parts, fmt.Sprintf("reconnecting (%d)", snapshot.ReconnectAttempts))
	}
	return strings.Join(parts, dimStyle.Render(" | "))
}

func (m model) errorLine() string {
	switch {
	case m.startErr != nil:
		return m.startErr.Error()
	case m.snapshot.Error != "":
		return m.snapshot.Error
	case m.lastErr != nil:
		return m.lastErr.Error()
	}
	return ""
}

func audioLabel(state orchestration.AudioState) string {
	switch state {
	case orchestration.AudioRecording:
		return "listening"
	case orchestration.AudioPlaying:
		return "examiner speaking"
	case orchestration.AudioProcessing:
		return "waiting"
	}
	return "idle"
}

func renderTranscript(entries []orchestration.TranscriptEntry, width int) string {
	if len(entries) == 0 {
		return dimStyle.Render("The examiner will greet you shortly.")
	}

	textWidth := max(width-transcriptPad, 20)
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if entry.Role == events.RoleAssistant {
			b.WriteString(examinerStyle.Render("Examiner"))
		} else {
			b.WriteString(studentStyle.Render("You"))
		}
		b.WriteString("\n")

		text := indent.String(wordwrap.String(entry.Text, textWidth), transcriptPad)
		if !entry.IsFinal {
			text = partialStyle.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func renderConclusion(result orchestration.ConclusionResult, width int) string {
	textWidth := max(width-4, 20)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Score %g/%d", result.Score, result.Total)))
	b.WriteString("\n")
	b.WriteString(wordwrap.String(result.Summary, textWidth))
	if len(result.Strengths) > 0 {
		b.WriteString("\n\n")
		b.WriteString(examinerStyle.Render("Strengths"))
		for _, s := range result.Strengths {
			b.WriteString("\n")
			b.WriteString(indent.String(wordwrap.String("- "+s, textWidth-2), 2))
		}
	}
	if len(result.Improvements) > 0 {
		b.WriteString("\n\n")
		b.WriteString(studentStyle.Render("To improve"))
		for _, s := range result.Improvements {
			b.WriteString("\n")
			b.WriteString(indent.String(wordwrap.String("- "+s, textWidth-2), 2))
		}
	}
	return conclusionBox.Render(b.String())
}
