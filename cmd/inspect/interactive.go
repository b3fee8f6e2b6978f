package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/marshal"
	"github.com/wippyai/script-bridge/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLimit = 8

// inspectorModel drives the reference engine from a command prompt so
// slots, cells, refs and collection can be watched live.
type inspectorModel struct {
	stack   *engine.Stack
	ch      *marshal.Channel
	input   textinput.Model
	history []string
	closed  bool
}

func newInspectorModel() (*inspectorModel, error) {
	st := engine.New()
	reg := registry.New()
	ch, err := marshal.New(st, reg)
	if err != nil {
		return nil, err
	}
	if err := registerDemoTypes(reg); err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "push 42 • vec 1 2 3 • gc • help"
	ti.Width = 60
	ti.Focus()

	return &inspectorModel{stack: st, ch: ch, input: ti}, nil
}

func (m *inspectorModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stack.Close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "q" {
				m.stack.Close()
				return m, tea.Quit
			}
			m.record(m.exec(line))
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inspectorModel) record(s string) {
	m.history = append(m.history, s)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

func (m *inspectorModel) exec(line string) string {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	if m.closed && cmd != "help" {
		return errorStyle.Render("stack is closed")
	}

	switch cmd {
	case "help":
		return helpStyle.Render("push <nil|true|false|number|text> • vec x y z • pop [n] • dup <slot> • read <slot> • eq <a> <b> • ref <slot> • unref <id> • pushref <id> • gc • close • quit")

	case "push":
		if len(args) == 0 {
			return errorStyle.Render("push needs a value")
		}
		raw := strings.Join(args, " ")
		var slot scriptbridge.Slot
		switch {
		case raw == "nil":
			slot = m.stack.PushNil()
		case raw == "true" || raw == "false":
			slot = m.stack.PushBool(raw == "true")
		default:
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				slot = m.stack.PushNumber(n)
			} else {
				slot = m.stack.PushString(raw)
			}
		}
		return resultStyle.Render(fmt.Sprintf("pushed at slot %d", slot))

	case "vec":
		if len(args) != 3 {
			return errorStyle.Render("vec needs three numbers")
		}
		var coords [3]float64
		for i, a := range args {
			n, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return errorStyle.Render("vec needs three numbers")
			}
			coords[i] = n
		}
		slot, err := marshal.Push(m.ch, vector{X: coords[0], Y: coords[1], Z: coords[2]})
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return resultStyle.Render(fmt.Sprintf("pushed vector at slot %d", slot))

	case "pop":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return errorStyle.Render("pop takes a positive count")
			}
			n = v
		}
		m.stack.Pop(n)
		return resultStyle.Render(fmt.Sprintf("popped %d", n))

	case "dup":
		slot, err := slotArg(args)
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		dup, err := m.stack.Dup(slot)
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return resultStyle.Render(fmt.Sprintf("duplicated to slot %d", dup))

	case "read":
		slot, err := slotArg(args)
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return resultStyle.Render(describeSlot(m.ch, slot))

	case "eq":
		if len(args) != 2 {
			return errorStyle.Render("eq takes two slots")
		}
		a, errA := strconv.Atoi(args[0])
		b, errB := strconv.Atoi(args[1])
		if errA != nil || errB != nil {
			return errorStyle.Render("eq takes two slots")
		}
		eq, err := m.stack.Equals(scriptbridge.Slot(a), scriptbridge.Slot(b))
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return resultStyle.Render(fmt.Sprintf("%v", eq))

	case "ref":
		slot, err := slotArg(args)
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		ref, err := m.stack.Ref(slot)
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return resultStyle.Render(fmt.Sprintf("ref %d", ref))

	case "unref":
		if len(args) != 1 {
			return errorStyle.Render("unref takes a ref id")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return errorStyle.Render("bad ref id")
		}
		if !m.stack.Unref(engine.Ref(id)) {
			return errorStyle.Render("unknown ref")
		}
		return resultStyle.Render(fmt.Sprintf("released ref %d", id))

	case "pushref":
		if len(args) != 1 {
			return errorStyle.Render("pushref takes a ref id")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return errorStyle.Render("bad ref id")
		}
		slot, err := m.stack.PushRef(engine.Ref(id))
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return resultStyle.Render(fmt.Sprintf("pushed at slot %d", slot))

	case "gc":
		return resultStyle.Render(fmt.Sprintf("collected %d", m.stack.Collect()))

	case "close":
		m.stack.Close()
		m.closed = true
		return resultStyle.Render("closed; destructors ran")

	default:
		return errorStyle.Render("unknown command (try help)")
	}
}

func slotArg(args []string) (scriptbridge.Slot, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one slot index")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("bad slot index %q", args[0])
	}
	return scriptbridge.Slot(n), nil
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Stack Inspector"))
	b.WriteString("\n\n")

	if m.closed {
		b.WriteString(errorStyle.Render("stack closed"))
		b.WriteString("\n\n")
	} else {
		stats := m.stack.Stats()
		b.WriteString("Stack (top last):\n")
		if stats.Top == 0 {
			b.WriteString(helpStyle.Render("  <empty>"))
			b.WriteString("\n")
		}
		for i := 1; i <= stats.Top; i++ {
			slot := scriptbridge.Slot(i)
			b.WriteString(slotStyle.Render(fmt.Sprintf("  [%d] ", i)))
			b.WriteString(kindStyle.Render(m.stack.KindAt(slot).String()))
			b.WriteString(" ")
			b.WriteString(describeSlot(m.ch, slot))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(kindStyle.Render(fmt.Sprintf("cells %d • refs %d • hooks %d • collected %d",
			stats.LiveCells, stats.ExtRefs, stats.Hooks, stats.Collected)))
		b.WriteString("\n\n")
	}

	for _, h := range m.history {
		b.WriteString(h)
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • ctrl+c quit • help for commands"))
	return b.String()
}

func runInteractive() error {
	m, err := newInspectorModel()
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
