package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meducate/labs-orchestrator/internal/config"
	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/core/ports"
	"github.com/meducate/labs-orchestrator/internal/core/usecase"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/gateway/asynclabs"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/queue/nats"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/repository/postgres"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/resilience"
	"github.com/meducate/labs-orchestrator/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Gateway      ports.InterpretationGateway
	History      ports.JobHistoryStore
	Orchestrator ports.InterpretationOrchestrator

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, serverMetrics *metrics.HTTPServerMetrics) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	gateway := asynclabs.NewWithOptions(
		cfg.LabsBaseURL,
		asynclabs.StaticTokenSource(cfg.LabsAPIToken),
		asynclabs.Options{Executor: executor},
	)

	var history ports.JobHistoryStore
	var closeDB func()
	if !cfg.HistoryDisabled {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewJobHistoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		history = repo
		closeDB = func() { _ = db.Close() }
	}

	var events ports.JobEventPublisher
	var closeQueue func()
	if !cfg.NATSDisabled {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
		closeQueue = publisher.Close
	}

	var onChange func(domain.AttemptState)
	if serverMetrics != nil {
		onChange = jobMetricsObserver(serverMetrics)
	}

	orchestrator := usecase.NewWithOptions(gateway, logger, usecase.Options{
		Config: usecase.Config{
			PollInterval:    cfg.PollInterval(),
			FirstProbeDelay: cfg.FirstProbeDelay(),
			StatusTimeout:   cfg.StatusTimeout(),
		},
		History:  history,
		Events:   events,
		OnChange: onChange,
	})

	return &App{
		Config:       cfg,
		Logger:       logger,
		Gateway:      gateway,
		History:      history,
		Orchestrator: orchestrator,

		closeFn: func() {
			orchestrator.Close()
			if closeQueue != nil {
				closeQueue()
			}
			if closeDB != nil {
				closeDB()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// jobMetricsObserver derives submission and outcome counters from attempt
// state transitions.
func jobMetricsObserver(m *metrics.HTTPServerMetrics) func(domain.AttemptState) {
	const service = "labs-orchestrator"
	var mu sync.Mutex
	prev := domain.PhaseIdle
	var startedAt time.Time

	return func(state domain.AttemptState) {
		mu.Lock()
		defer mu.Unlock()

		m.SetJobActive(state.Phase.InFlight())
		switch {
		case state.Phase.InFlight() && !prev.InFlight():
			startedAt = time.Now()
			m.RecordSubmission(service, "accepted")
		case state.Phase == domain.PhaseIdle && prev == domain.PhaseSubmitting:
			result := "rejected"
			if state.SubscriptionError != nil {
				result = "subscription_limit"
			}
			m.RecordSubmission(service, result)
		case state.Phase.Terminal() && !prev.Terminal():
			var elapsed time.Duration
			if !startedAt.IsZero() {
				elapsed = time.Since(startedAt)
				startedAt = time.Time{}
			}
			m.RecordOutcome(service, string(state.Phase), elapsed)
		}
		prev = state.Phase
	}
}
