package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	wishlogging "github.com/charmbracelet/wish/logging"

	"github.com/fluxmind/flux/internal/adapters/calendar"
	"github.com/fluxmind/flux/internal/adapters/gemini"
	"github.com/fluxmind/flux/internal/adapters/storage"
	"github.com/fluxmind/flux/internal/config"
	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ports"
	"github.com/fluxmind/flux/internal/services"
)

// Server represents the SSH server for flux. The thought collection, its
// store, and the classification gateway are shared by every session: one
// registry serializes all mutations, so sessions never overwrite each
// other's thoughts. Undo and the sorting flow stay per-session.
type Server struct {
	calendar   ports.CalendarContextProvider
	classifier ports.Classifier
	host       string
	lang       domain.Language
	port       string
	registry   *services.ThoughtService
	repo       ports.ThoughtRepository
	wishServer *ssh.Server
}

// NewServer creates a new SSH server instance over the shared database.
func NewServer(host, port, dbPath string, settings *config.Settings) (*Server, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	registry := services.NewThoughtService(repo)
	if err := registry.Load(context.Background()); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load thoughts: %w", err)
	}

	lang := domain.Language(settings.Language)
	if !lang.Valid() {
		lang = domain.LangEnglish
	}

	model := settings.GeminiModel
	if model == "" {
		model = config.DefaultGeminiModel
	}

	var calProvider ports.CalendarContextProvider
	if settings.CalendarProvider != "" {
		calProvider = calendar.NewGoogleProvider()
	}

	s := &Server{
		calendar:   calProvider,
		classifier: gemini.NewClient(os.Getenv("GEMINI_API_KEY"), model),
		host:       host,
		lang:       lang,
		port:       port,
		registry:   registry,
		repo:       repo,
	}

	// Ensure SSH directory exists
	homeDir, err := os.UserHomeDir()
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	sshDir := filepath.Join(homeDir, ".flux", "ssh")
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create SSH directory: %w", err)
	}

	hostKeyPath := filepath.Join(sshDir, "id_ed25519")

	wishServer, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf("%s:%s", host, port)),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			fingerprint := getKeyFingerprint(key)
			user := ctx.User()

			homeDir, err := os.UserHomeDir()
			if err != nil {
				logging.Logger.Error("Failed to get home directory",
					"error", err,
					"user", user,
					"fingerprint", fingerprint)
				return false
			}

			authorizedKeysPath := filepath.Join(homeDir, ".ssh", "authorized_keys")
			authorized := isKeyAuthorized(key, authorizedKeysPath)

			if authorized {
				logging.Logger.Info("SSH key authenticated",
					"user", user,
					"fingerprint", fingerprint,
					"key_type", key.Type())
			} else {
				logging.Logger.Warn("Unauthorized SSH key",
					"user", user,
					"fingerprint", fingerprint,
					"key_type", key.Type())
			}

			return authorized
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(s.teaHandler),
			activeterm.Middleware(), // Require PTY
			wishlogging.Middleware(),
		),
	)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}

	s.wishServer = wishServer
	return s, nil
}

// Start starts the SSH server and blocks until shutdown.
func (s *Server) Start() error {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logging.Logger.Info("Starting SSH server", "address", fmt.Sprintf("%s:%s", s.host, s.port))
	fmt.Printf("SSH server listening on %s:%s\n", s.host, s.port)

	go func() {
		if err := s.wishServer.ListenAndServe(); err != nil {
			logging.Logger.Error("SSH server error", "error", err)
		}
	}()

	<-done
	logging.Logger.Info("Shutting down SSH server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.wishServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown SSH server: %w", err)
	}

	if err := s.repo.Close(); err != nil {
		logging.Logger.Error("Failed to close store", "error", err)
	}

	logging.Logger.Info("SSH server stopped")
	return nil
}
