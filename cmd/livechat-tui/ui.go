package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/younivision/livechat-go/chat"
	"github.com/younivision/livechat-go/client"
)

type connStateMsg struct {
	connected bool
}

type incomingMsg struct {
	message chat.Message
}

type serverErrMsg string

// typingTickMsg drives the periodic poll of the typing roster.
type typingTickMsg struct{}

func typingTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return typingTickMsg{}
	})
}

var (
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Italic(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	tipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
)

type modelState struct {
	chat      *client.Client
	viewport  viewport.Model
	textInput textinput.Model
	lines     []string
	typing    []string
	connected bool
	ready     bool
}

func initialModel(c *client.Client) modelState {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 20

	return modelState{
		chat:      c,
		textInput: ti,
	}
}

func (m modelState) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, typingTick())
}

func (m modelState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.SetValue("")
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.runCommand(input)
			}
			if err := m.chat.SendMessage(input); err != nil {
				if errors.Is(err, client.ErrSlowMode) {
					return m.addLine(noticeStyle.Render("slow mode: wait before sending again")), nil
				}
				return m.addLine(errStyle.Render("send failed: " + err.Error())), nil
			}
			return m, nil
		}

	case connStateMsg:
		m.connected = msg.connected
		if msg.connected {
			return m.addLine(noticeStyle.Render("connected")), nil
		}
		return m.addLine(noticeStyle.Render("disconnected, retrying...")), nil

	case incomingMsg:
		return m.addLine(formatMessage(msg.message)), nil

	case serverErrMsg:
		return m.addLine(errStyle.Render("server error: " + string(msg))), nil

	case typingTickMsg:
		m.typing = m.chat.Store().Typing()
		return m, typingTick()

	case tea.WindowSizeMsg:
		footerHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			m.viewport.SetContent("")
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footerHeight
		}
		m.textInput.Width = msg.Width
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m modelState) View() string {
	if !m.ready {
		return "\n  Connecting..."
	}
	status := "offline"
	if m.connected {
		status = "online"
	}
	if len(m.typing) > 0 {
		status += " · " + strings.Join(m.typing, ", ") + " typing..."
	}
	return fmt.Sprintf("%s\n%s %s\n%s",
		m.viewport.View(),
		strings.Repeat("─", max(m.viewport.Width-len(status)-1, 0)),
		noticeStyle.Render(status),
		m.textInput.View(),
	)
}

func (m modelState) runCommand(input string) (modelState, tea.Cmd) {
	parts := strings.Fields(input)
	switch parts[0] {
	case "/help":
		return m.addLine(noticeStyle.Render(
			"/tip <amount> [userId] · /react <messageId> <emoji> · /balance · /quit")), nil

	case "/tip":
		if len(parts) < 2 {
			return m.addLine(noticeStyle.Render("usage: /tip <amount> [userId]")), nil
		}
		amount, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return m.addLine(errStyle.Render("bad amount: " + parts[1])), nil
		}
		recipient := ""
		if len(parts) > 2 {
			recipient = parts[2]
		}
		// Blocks on the wallet gateway; acceptable for an example client.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.chat.SendTip(ctx, amount, recipient, ""); err != nil {
			return m.addLine(errStyle.Render("tip failed: " + err.Error())), nil
		}
		return m.addLine(tipStyle.Render(fmt.Sprintf("tipped %.2f", amount))), nil

	case "/react":
		if len(parts) != 3 {
			return m.addLine(noticeStyle.Render("usage: /react <messageId> <emoji>")), nil
		}
		m.chat.AddReaction(parts[1], parts[2])
		return m, nil

	case "/balance":
		return m.addLine(noticeStyle.Render(fmt.Sprintf("balance: %.2f", m.chat.Balance()))), nil

	case "/quit":
		return m, tea.Quit

	default:
		return m.addLine(noticeStyle.Render("unknown command: " + parts[0])), nil
	}
}

func (m modelState) addLine(line string) modelState {
	m.lines = append(m.lines, line)
	if m.ready {
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
	}
	return m
}

func formatMessage(msg chat.Message) string {
	ts := timeStyle.Render(msg.Timestamp.Format("15:04"))

	name := msg.Username
	if name == "" {
		name = msg.UserID
	}
	nameStyle := lipgloss.NewStyle().Bold(true)
	if msg.Color != "" {
		nameStyle = nameStyle.Foreground(lipgloss.Color(msg.Color))
	}

	if msg.Type == chat.TypeTip && msg.Tip != nil {
		return fmt.Sprintf("%s %s %s", ts, nameStyle.Render(name),
			tipStyle.Render(fmt.Sprintf("tipped %.2f ★", msg.Tip.Amount)))
	}

	return fmt.Sprintf("%s %s %s", ts, nameStyle.Render(name), msg.Content)
}
