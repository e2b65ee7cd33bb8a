package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/zong-runtime/engine"
	"github.com/wippyai/zong-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	protoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	echoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateLoading modelState = iota
	stateRunning
	stateFinished
)

type interactiveModel struct {
	err      error
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      engine.Config
	lines    chan string
	stdinR   *io.PipeReader
	eof      bool
	send     func(tea.Msg)
	filename string
	protocol string
	output   strings.Builder
	input    textinput.Model
	view     viewport.Model
	state    modelState
	ready    bool
}

// startedMsg reports that the guest was loaded and is running.
type startedMsg struct {
	protocol string
}

// outputMsg carries bytes the guest wrote to stdout.
type outputMsg []byte

// doneMsg reports that the guest entry function returned or trapped.
type doneMsg struct {
	err error
}

func newInteractiveModel(filename string, cfg engine.Config) *interactiveModel {
	ctx, cancel := context.WithCancel(context.Background())
	r, w := io.Pipe()
	lines := make(chan string, lineQueueSize)
	go feedLines(w, lines)

	ti := textinput.New()
	ti.Placeholder = "input line"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	return &interactiveModel{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		stdinR:   r,
		lines:    lines,
		filename: filename,
		input:    ti,
		state:    stateLoading,
	}
}

// lineQueueSize bounds the lines typed ahead of the guest's read_line calls.
const lineQueueSize = 256

// feedLines writes queued lines to w in order and closes w when lines is
// closed. Once w fails (the guest is gone) the rest is discarded.
func feedLines(w io.WriteCloser, lines <-chan string) {
	var err error
	for line := range lines {
		if err == nil {
			_, err = io.WriteString(w, line)
		}
	}
	_ = w.Close()
}

// programWriter forwards guest output to the running program.
type programWriter struct {
	send func(tea.Msg)
}

func (w programWriter) Write(p []byte) (int, error) {
	w.send(outputMsg(append([]byte(nil), p...)))
	return len(p), nil
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start)
}

// start loads the guest and runs it in the background. Output and the
// final result arrive as messages.
func (m *interactiveModel) start() tea.Msg {
	rt, err := runtime.New(m.ctx, m.cfg,
		runtime.WithStdout(programWriter{send: m.send}),
		runtime.WithStdin(m.stdinR))
	if err != nil {
		return doneMsg{err: err}
	}

	mod, err := rt.LoadFile(m.ctx, m.filename)
	if err != nil {
		_ = rt.Close(m.ctx)
		return doneMsg{err: err}
	}

	inst, err := mod.Instantiate(m.ctx)
	if err != nil {
		_ = rt.Close(m.ctx)
		return doneMsg{err: err}
	}

	go func() {
		err := inst.Run(m.ctx)
		ctx := context.Background()
		_ = inst.Close(ctx)
		_ = rt.Close(ctx)
		m.send(doneMsg{err: err})
	}()

	return startedMsg{protocol: mod.Version().Name()}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			m.closeInput()
			return m, tea.Quit

		case "q":
			if m.state == stateFinished {
				return m, tea.Quit
			}

		case "ctrl+d":
			if m.state == stateRunning {
				m.closeInput()
				m.input.Blur()
			}
			return m, nil

		case "enter":
			if m.state == stateRunning && m.input.Focused() {
				line := m.input.Value()
				m.input.SetValue("")
				select {
				case m.lines <- line + "\n":
					m.appendOutput(echoStyle.Render(m.input.Prompt + line))
				default:
					m.appendOutput(errorStyle.Render("input queue full, line dropped"))
				}
				m.appendOutput("\n")
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 5
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.view = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = height
		}
		m.view.SetContent(m.output.String())

	case startedMsg:
		m.protocol = msg.protocol
		m.state = stateRunning

	case outputMsg:
		m.appendOutput(string(msg))

	case doneMsg:
		m.err = msg.err
		m.state = stateFinished
		m.input.Blur()
		_ = m.stdinR.Close()
	}

	var cmds []tea.Cmd
	if m.state == stateRunning {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.ready {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// closeInput ends the guest's stdin once the queued lines are delivered.
func (m *interactiveModel) closeInput() {
	if !m.eof {
		m.eof = true
		close(m.lines)
	}
}

func (m *interactiveModel) appendOutput(s string) {
	m.output.WriteString(s)
	if m.ready {
		m.view.SetContent(m.output.String())
		m.view.GotoBottom()
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Zong Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	if m.protocol != "" {
		b.WriteString(" ")
		b.WriteString(protoStyle.Render(m.protocol))
	}
	b.WriteString("\n\n")

	if m.ready {
		b.WriteString(m.view.View())
	} else {
		b.WriteString(m.output.String())
	}
	b.WriteString("\n")

	switch m.state {
	case stateLoading:
		b.WriteString("Loading module...")

	case stateRunning:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter send line • ctrl+d end input • esc quit"))

	case stateFinished:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render("Guest finished."))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q quit"))
	}

	return b.String()
}

func runInteractive(filename string, cfg engine.Config) error {
	m := newInteractiveModel(filename, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.send = p.Send
	final, err := p.Run()
	m.cancel()
	if err != nil {
		return err
	}
	if fm, ok := final.(*interactiveModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
