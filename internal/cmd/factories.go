package cmd

import (
	"context"
	"os"

	"github.com/fluxmind/flux/internal/adapters/calendar"
	"github.com/fluxmind/flux/internal/adapters/gemini"
	"github.com/fluxmind/flux/internal/adapters/storage"
	"github.com/fluxmind/flux/internal/config"
	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ports"
	"github.com/fluxmind/flux/internal/services"
)

// seedThoughts populate the nebula on a brand-new database so the first
// sorting session has something to chew on.
var seedThoughts = []string{
	"What my colleague thinks about my work",
	"Reply to the dentist about rescheduling",
	"The news cycle I keep doomscrolling",
	"Plan the weekend hike",
	"Whether the project deadline will slip",
}

// Container holds all dependencies for the application
type Container struct {
	// Services
	Registry *services.ThoughtService
	Triage   *services.TriageService
	Undo     *services.UndoCoordinator

	// Adapters
	Calendar   ports.CalendarContextProvider
	Classifier ports.Classifier
	Language   domain.Language

	// Internal - for cleanup only
	repo ports.ThoughtRepository
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(dbPath string, settings *config.Settings) (*Container, error) {
	expanded := config.ExpandPath(dbPath)
	_, statErr := os.Stat(expanded)
	firstRun := os.IsNotExist(statErr)

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, err
	}

	registry := services.NewThoughtService(repo)
	if err := registry.Load(context.Background()); err != nil {
		repo.Close()
		return nil, err
	}
	if firstRun {
		registry.Seed(context.Background(), seedThoughts)
		logging.Logger.Info("Seeded initial thoughts", "count", len(seedThoughts))
	}

	lang := domain.Language(settings.Language)
	if !lang.Valid() {
		lang = domain.LangEnglish
	}

	model := settings.GeminiModel
	if model == "" {
		model = config.DefaultGeminiModel
	}
	classifier := gemini.NewClient(os.Getenv("GEMINI_API_KEY"), model)

	var calProvider ports.CalendarContextProvider
	if settings.CalendarProvider != "" {
		calProvider = calendar.NewGoogleProvider()
	}

	undo := services.NewUndoCoordinator(services.DefaultUndoWindow)
	triage := services.NewTriageService(registry, classifier, calProvider, undo, lang)

	return &Container{
		Calendar:   calProvider,
		Classifier: classifier,
		Language:   lang,
		Registry:   registry,
		Triage:     triage,
		Undo:       undo,
		repo:       repo,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.repo != nil {
		return c.repo.Close()
	}
	return nil
}
