package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/oracle/internal/formatter"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/router"
	"github.com/desertthunder/oracle/internal/shared"
)

const (
	historyLimit = 50
	systemCoach  = "System"
	chatFailure  = "I apologize, but I'm having trouble responding right now. Please try again in a moment."
)

// ChatScreen is the conversation with the selected coach persona.
type ChatScreen struct {
	deps      *Deps
	sessionID string

	mu       sync.Mutex
	messages []models.ChatMessage
	loaded   bool
	coach    int
	pending  bool
	input    textinput.Model
	viewport viewport.Model
	keys     struct{ send, coach key.Binding }
}

// NewChatScreen creates the chat screen with a fresh chat session id.
func NewChatScreen(deps *Deps) *ChatScreen {
	in := newInput(deps.StaticCursor)
	in.Placeholder = "Ask your coach anything…"
	in.CharLimit = 1000
	in.Focus()

	s := &ChatScreen{
		deps:      deps,
		sessionID: shared.GenerateID(),
		input:     in,
		viewport:  viewport.New(80, 16),
	}
	s.keys.send = binding("enter", "send")
	s.keys.coach = binding("ctrl+t", "switch coach")
	return s
}

// Coach returns the selected persona.
func (s *ChatScreen) Coach() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DefaultCoaches[s.coach]
}

// Messages returns a copy of the conversation.
func (s *ChatScreen) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

// Render loads the history once. Without history the selected coach greets the user.
func (s *ChatScreen) Render(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	history, err := s.deps.API.ChatHistory(ctx, "", historyLimit)
	if err != nil {
		s.deps.logger().Warn("failed to load chat history", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.messages = history
	if len(s.messages) == 0 {
		s.greet()
	}
	s.syncViewport()
	return nil
}

func (s *ChatScreen) Help() []key.Binding {
	return []key.Binding{s.keys.send, s.keys.coach}
}

func (s *ChatScreen) Update(msg tea.Msg) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.viewport.Width = max(msg.Width-4, 20)
		s.viewport.Height = max(msg.Height-12, 5)
		s.input.Width = max(msg.Width-8, 20)
		s.syncViewport()
		return nil

	case chatReplyMsg:
		s.pending = false
		if msg.err != nil || msg.reply == nil {
			s.deps.logger().Error("chat failed", "error", msg.err)
			s.append(models.SenderAI, chatFailure, systemCoach, nil)
		} else {
			coach := msg.reply.Coach
			if coach == "" {
				coach = models.DefaultCoaches[s.coach]
			}
			s.append(models.SenderAI, msg.reply.Message, coach, msg.reply.Suggestions)
		}
		return nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.send):
			return s.send()
		case key.Matches(msg, s.keys.coach):
			s.coach = (s.coach + 1) % len(models.DefaultCoaches)
			coach := models.DefaultCoaches[s.coach]
			s.deps.toast("Switched to "+coach, router.ToastInfo)
			s.greet()
			return nil
		case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
			var cmd tea.Cmd
			s.viewport, cmd = s.viewport.Update(msg)
			return cmd
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return cmd
	}
	return nil
}

// send must be called with s.mu held.
func (s *ChatScreen) send() tea.Cmd {
	text := strings.TrimSpace(s.input.Value())
	if text == "" || s.pending {
		return nil
	}
	s.input.SetValue("")
	s.append(models.SenderUser, text, "", nil)
	s.pending = true

	ctx, api, sessionID, coach := s.deps.context(), s.deps.API, s.sessionID, models.DefaultCoaches[s.coach]
	return func() tea.Msg {
		reply, err := api.SendMessage(ctx, text, sessionID, coach)
		return chatReplyMsg{reply: reply, err: err}
	}
}

// greet must be called with s.mu held.
func (s *ChatScreen) greet() {
	coach := models.DefaultCoaches[s.coach]
	s.append(models.SenderAI, fmt.Sprintf("Hello! I'm %s. I'm here to help you with your boxing training. What would you like to work on?", coach), coach, nil)
}

// append must be called with s.mu held.
func (s *ChatScreen) append(sender, content, coach string, suggestions []string) {
	s.messages = append(s.messages, models.ChatMessage{
		ID:          shared.GenerateID(),
		Sender:      sender,
		Content:     content,
		Coach:       coach,
		Suggestions: suggestions,
		SessionID:   s.sessionID,
		Timestamp:   s.deps.now(),
	})
	s.syncViewport()
}

func (s *ChatScreen) syncViewport() {
	var b strings.Builder
	for i, m := range s.messages {
		stamp := m.Timestamp.Local().Format("15:04")
		if m.Sender == models.SenderUser {
			b.WriteString(styles.accent.Bold(true).Render("You") + " " + styles.help.Render(stamp) + "\n")
			b.WriteString(m.Content + "\n")
		} else {
			name := m.Coach
			if name == "" {
				name = "Coach"
			}
			style := styles.ok
			if name == systemCoach {
				style = styles.err
			}
			b.WriteString(style.Render(name) + " " + styles.help.Render(stamp) + "\n")
			b.WriteString(formatter.RenderMessage(m.Content) + "\n")
			if len(m.Suggestions) > 0 && i == len(s.messages)-1 {
				b.WriteString(styles.help.Render("Try: "+strings.Join(m.Suggestions, " · ")) + "\n")
			}
		}
		b.WriteString("\n")
	}
	s.viewport.SetContent(b.String())
	s.viewport.GotoBottom()
}

func (s *ChatScreen) View(_, _ int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	coach := models.DefaultCoaches[s.coach]
	out := styles.title.Render("Training Chat") + "\n" +
		styles.help.Render("Coach: ") + styles.accent.Render(coach) + "\n\n" +
		s.viewport.View() + "\n"
	if s.pending {
		out += styles.help.Render(coach+" is typing…") + "\n"
	}
	return out + "> " + s.input.View()
}
