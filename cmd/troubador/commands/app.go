package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Victoriakaey/troubador2/internal/adapters/anthropicmodel"
	"github.com/Victoriakaey/troubador2/internal/adapters/gameapi"
	"github.com/Victoriakaey/troubador2/internal/adapters/memory"
	"github.com/Victoriakaey/troubador2/internal/adapters/music"
	"github.com/Victoriakaey/troubador2/internal/adapters/ollama"
	"github.com/Victoriakaey/troubador2/internal/adapters/openaimodel"
	"github.com/Victoriakaey/troubador2/internal/adapters/sqlite"
	"github.com/Victoriakaey/troubador2/internal/config"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/core/services"
	"github.com/Victoriakaey/troubador2/internal/metrics"
	"github.com/Victoriakaey/troubador2/internal/tools"
)

// app is the wired engine shared by the commands.
type app struct {
	orchestrator *services.Orchestrator
	tools        *tools.Set
	repoCloser   func() error
}

func (a *app) Close() error {
	if a.repoCloser == nil {
		return nil
	}
	return a.repoCloser()
}

// newApp wires adapters into the core services. This is the single place
// where concrete implementations meet the ports.
func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*app, error) {
	rec := metrics.NewRecorder(reg)

	set, err := newToolSet(ctx, cfg, rec, logger)
	if err != nil {
		return nil, err
	}

	model, err := newModel(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, closer, err := newRepository(cfg)
	if err != nil {
		return nil, err
	}

	agent := services.NewAgent(model, set, services.AgentConfig{
		Role:            cfg.Agent.Role,
		Goal:            cfg.Agent.Goal,
		Backstory:       cfg.Agent.Backstory,
		TaskDescription: cfg.Task.Description,
		ExpectedOutput:  cfg.Task.ExpectedOutput,
		MaxIter:         cfg.Agent.MaxIter,
		InjectDate:      cfg.Agent.InjectDate,
		Temperature:     cfg.Model.Temperature,
		MaxTokens:       cfg.Model.MaxTokens,
	}, rec, logger)

	orch, err := services.NewOrchestrator(agent, repo, services.OrchestratorConfig{
		GameDescription: cfg.Game.Description,
		CaptureExpr:     cfg.Agent.CaptureExpr,
	}, rec, logger)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}

	logger.Debug("app: wired",
		"model", model.Name(),
		"storage", cfg.Storage.Driver,
		"tools", set.String())

	return &app{orchestrator: orch, tools: set, repoCloser: closer}, nil
}

func newToolSet(ctx context.Context, cfg *config.Config, rec *metrics.Recorder, logger *slog.Logger) (*tools.Set, error) {
	actionTool, err := tools.NewActionTool(newExecutor(ctx, cfg, logger), rec)
	if err != nil {
		return nil, err
	}
	musicTool, err := tools.NewMusicTool(newForwarder(cfg, logger), rec)
	if err != nil {
		return nil, err
	}
	return tools.NewSet(actionTool, musicTool)
}

func newExecutor(ctx context.Context, cfg *config.Config, logger *slog.Logger) *gameapi.Executor {
	return gameapi.NewExecutor(actionHTTPClient(ctx, cfg.Action.OAuth2), cfg.Action.DefaultTimeout, logger)
}

func newForwarder(cfg *config.Config, logger *slog.Logger) *music.Forwarder {
	return music.NewForwarder(nil, cfg.Music.Endpoint, cfg.Game.Description, cfg.Music.Timeout, logger)
}

// actionHTTPClient returns an OAuth2 client-credentials client when the game
// API requires tokens, and a plain client otherwise.
func actionHTTPClient(ctx context.Context, oc config.OAuth2Config) *http.Client {
	if !oc.Enabled() {
		return &http.Client{}
	}
	cc := clientcredentials.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		TokenURL:     oc.TokenURL,
		Scopes:       oc.Scopes,
	}
	return cc.Client(ctx)
}

func newModel(cfg *config.Config, logger *slog.Logger) (ports.Model, error) {
	m := cfg.Model
	switch m.Provider {
	case config.ProviderOpenAI:
		if m.APIKey == "" && m.BaseURL == "" {
			return nil, fmt.Errorf("model: OPENAI_API_KEY is not set")
		}
		return openaimodel.NewClient(m.APIKey, m.BaseURL, m.Name), nil
	case config.ProviderAnthropic:
		if m.APIKey == "" && m.BaseURL == "" {
			return nil, fmt.Errorf("model: ANTHROPIC_API_KEY is not set")
		}
		return anthropicmodel.NewClient(m.APIKey, m.BaseURL, m.Name), nil
	case config.ProviderOllama:
		return ollama.NewClient(m.BaseURL, m.Name, ollama.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("model: unknown provider %q", m.Provider)
	}
}

func newRepository(cfg *config.Config) (ports.RoundRepository, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.NewAdapter(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: failed to initialize database: %w", err)
		}
		return db, db.Close, nil
	case config.DriverMemory:
		return memory.NewRepository(), nil, nil
	default:
		return nil, nil, fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}
}
