package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	refreshMsg    struct{}
	eventMsg      session.Event
	actionDoneMsg struct {
		action string
		err    error
	}
)

// model renders the controller's view and forwards keys to it. It holds no
// exam state of its own apart from the free-text buffer.
type model struct {
	ctx    context.Context
	ctrl   *session.Controller
	keys   *session.InputRouter
	status string

	typing bool
	buffer string
}

func newModel(ctx context.Context, ctrl *session.Controller) *model {
	return &model{ctx: ctx, ctrl: ctrl, keys: session.NewInputRouter(ctrl)}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *model) run(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return actionDoneMsg{action: action, err: fn(ctx)} }
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.run("load", m.ctrl.Start), tick())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		return m, tick()

	case eventMsg:
		switch msg.Kind {
		case session.EventTimeWarning:
			m.status = fmt.Sprintf("%d minutes remaining", msg.Remaining/60)
		case session.EventExpired:
			m.status = "Time is up, submitting"
		case session.EventSubmitFailed:
			m.status = fmt.Sprintf("Submission failed: %v", msg.Err)
		case session.EventOnlineChanged:
			if msg.Online {
				m.status = "Back online"
			} else {
				m.status = "Offline: answers are kept, submission waits for the connection"
			}
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.action, msg.err)
		} else {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m *model) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "ctrl+c" {
		m.ctrl.Exit()
		return m, tea.Quit
	}
	if m.typing {
		return m.handleTyping(key)
	}

	switch m.ctrl.State() {
	case session.StateQuestion:
		switch key {
		case "left":
			m.keys.HandleKey("ArrowLeft", false)
		case "right":
			m.keys.HandleKey("ArrowRight", false)
		case "f":
			if q := m.ctrl.CurrentQuestion(); q != nil {
				_, _ = m.ctrl.ToggleFlag(q.ID)
			}
		case "i":
			m.typing = true
			m.buffer = ""
		case "r":
			_ = m.ctrl.OpenReview()
		case "u":
			return m, m.run("refresh", m.ctrl.Refresh)
		case "s":
			return m, m.run("submit", m.ctrl.Submit)
		case "x":
			return m, m.run("abandon", m.ctrl.Abandon)
		default:
			m.keys.HandleKey(key, false)
		}

	case session.StateReview:
		switch key {
		case "esc":
			_ = m.ctrl.ReturnToQuestion(-1)
		case "s":
			return m, m.run("submit", m.ctrl.Submit)
		default:
			if n, err := strconv.Atoi(key); err == nil && n > 0 {
				_ = m.ctrl.ReturnToQuestion(n - 1)
			}
		}

	case session.StateBreak:
		if key == "c" {
			return m, m.run("continue", m.ctrl.Continue)
		}

	case session.StateError:
		if key == "r" {
			return m, m.run("retry", m.ctrl.Retry)
		}
		if key == "q" {
			return m, tea.Quit
		}

	case session.StateResult, session.StateExited:
		if key == "q" || key == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// handleTyping collects a free-response answer. Shortcuts stay inert.
func (m *model) handleTyping(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.typing = false
	case "enter":
		m.typing = false
		if q := m.ctrl.CurrentQuestion(); q != nil && m.buffer != "" {
			if err := m.ctrl.Answer(q.ID, m.buffer); err != nil {
				m.status = err.Error()
			}
		}
	case "backspace":
		if m.buffer != "" {
			m.buffer = m.buffer[:len(m.buffer)-1]
		}
	default:
		if m.keys.HandleKey(key, true) {
			return m, nil
		}
		if len(key) == 1 {
			m.buffer += key
		}
	}
	return m, nil
}

func (m *model) View() string {
	v := m.ctrl.View()
	var b strings.Builder

	if !v.Online {
		b.WriteString("[offline]\n")
	}

	switch v.State {
	case session.StateLoading:
		b.WriteString("Loading module...\n")

	case session.StateQuestion, session.StateSubmitting:
		writeHeader(&b, v)
		if q := v.Question; q != nil {
			if q.Passage != nil {
				fmt.Fprintf(&b, "%s\n%s\n\n", q.Passage.Title, q.Passage.Content)
			}
			fmt.Fprintf(&b, "Question %d of %d", q.Number, len(v.Module.Questions))
			if isFlagged(v, v.QuestionIndex) {
				b.WriteString("  [flagged]")
			}
			fmt.Fprintf(&b, "\n%s\n\n", q.Text)
			for _, o := range q.Options {
				marker := " "
				if v.Answers[q.ID] == o.ID {
					marker = ">"
				}
				fmt.Fprintf(&b, "%s %s) %s\n", marker, o.ID, o.Text)
			}
			if len(q.Options) == 0 {
				fmt.Fprintf(&b, "Your answer: %s\n", v.Answers[q.ID])
			}
		}
		if m.typing {
			fmt.Fprintf(&b, "\nanswer> %s_\n", m.buffer)
		}
		if v.State == session.StateSubmitting {
			b.WriteString("\nSubmitting...\n")
		} else {
			b.WriteString("\n[a-d] answer  [i] type answer  [<-/->] move  [f] flag  [r] review  [u] sync  [s] submit  [x] abandon\n")
		}

	case session.StateReview:
		writeHeader(&b, v)
		fmt.Fprintf(&b, "Answered %d of %d, flagged %d\n\n", v.Answered, len(v.Items), v.Flagged)
		for _, item := range v.Items {
			state := "unanswered"
			if item.Answered {
				state = "answered"
			}
			if item.Flagged {
				state += ", flagged"
			}
			fmt.Fprintf(&b, "  %2d  %s\n", item.Number, state)
		}
		b.WriteString("\n[1-9] go to question  [esc] back  [s] submit\n")

	case session.StateBreak:
		if v.Break != nil {
			fmt.Fprintf(&b, "Break: %s remaining\n", formatClock(v.Break.Remaining))
		}
		b.WriteString("[c] continue to the next section\n")

	case session.StateResult:
		b.WriteString("Test complete.\n")
		if v.Result != nil && v.Result.TotalScore != nil {
			fmt.Fprintf(&b, "Total score: %d\n", *v.Result.TotalScore)
		}
		b.WriteString("[q] quit\n")

	case session.StateExited:
		b.WriteString("Exam exited.\n[q] quit\n")

	case session.StateError:
		fmt.Fprintf(&b, "Something went wrong: %v\n[r] retry  [q] quit\n", v.Err)
	}

	if m.status != "" {
		fmt.Fprintf(&b, "\n%s\n", m.status)
	}
	return b.String()
}

func writeHeader(b *strings.Builder, v session.View) {
	if v.Module == nil {
		return
	}
	fmt.Fprintf(b, "%s %s (%s)   %s\n\n", v.Module.Section, v.Module.ModuleType, v.Module.Difficulty, formatClock(v.Countdown))
}

func isFlagged(v session.View, index int) bool {
	return index >= 0 && index < len(v.Items) && v.Items[index].Flagged
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
