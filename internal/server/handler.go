package server

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"

	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/services"
	"github.com/fluxmind/flux/internal/ui"
)

// sessionModel wraps ui.Model to log session lifetime
type sessionModel struct {
	*ui.Model
	sessionID string
	startTime time.Time
}

func (s *sessionModel) Init() tea.Cmd {
	return s.Model.Init()
}

func (s *sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.QuitMsg); ok {
		logging.Logger.Info("SSH session ended",
			"session_id", s.sessionID,
			"duration", time.Since(s.startTime).String())
	}

	updatedModel, cmd := s.Model.Update(msg)
	if m, ok := updatedModel.(*ui.Model); ok {
		s.Model = m
	}
	return s, cmd
}

func (s *sessionModel) View() string {
	return s.Model.View()
}

// teaHandler creates a Bubbletea model for each SSH session
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := sess.Pty()
	sessionID := fmt.Sprintf("%s@%s", sess.User(), sess.RemoteAddr().String())

	logging.Logger.Info("New SSH session",
		"session_id", sessionID,
		"user", sess.User(),
		"remote_addr", sess.RemoteAddr().String(),
		"term", pty.Term,
		"window", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

	return s.newSessionModel(sessionID), []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// newSessionModel wires a per-session UI over the shared registry. Every
// session reads and writes the same collection; only undo and the sorting
// flow are private to the connection.
func (s *Server) newSessionModel(sessionID string) *sessionModel {
	undo := services.NewUndoCoordinator(services.DefaultUndoWindow)
	triage := services.NewTriageService(s.registry, s.classifier, s.calendar, undo, s.lang)

	uiModel := ui.NewModel(ui.ModelConfig{
		Registry: s.registry,
		Triage:   triage,
		Undo:     undo,
	})

	return &sessionModel{
		Model:     uiModel,
		sessionID: sessionID,
		startTime: time.Now(),
	}
}
