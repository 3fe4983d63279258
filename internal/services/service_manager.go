package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CampusBridge-2025/access-service/internal/events"
	"github.com/CampusBridge-2025/access-service/internal/identity"
	"github.com/CampusBridge-2025/access-service/internal/repositories"
	"github.com/CampusBridge-2025/access-service/internal/validator"
)

// serviceManager wires the auth service to its event subscription and owns
// both lifecycles.
type serviceManager struct {
	repo      repositories.Repository
	identity  identity.Client
	bus       *events.Bus
	logger    *slog.Logger
	validator *validator.Validator

	authService AuthService

	initialized bool
	cancelRun   context.CancelFunc
	runDone     chan struct{}
	mu          sync.RWMutex
}

func NewServiceManager(
	repo repositories.Repository,
	identityClient identity.Client,
	bus *events.Bus,
	logger *slog.Logger,
	v *validator.Validator,
) ServiceManager {
	return &serviceManager{
		repo:      repo,
		identity:  identityClient,
		bus:       bus,
		logger:    logger,
		validator: v,
	}
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.authService
}

// Initialize builds the auth service and starts its session-event loop. The
// subscription lives until Shutdown.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.authService = NewAuthService(sm.repo, sm.identity, sm.bus, sm.logger, sm.validator)

	runCtx, cancel := context.WithCancel(context.Background())
	sub, err := sm.bus.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	sm.cancelRun = cancel
	sm.runDone = make(chan struct{})
	go func() {
		defer close(sm.runDone)
		sm.authService.Run(runCtx, sub)
	}()

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	return sm.repo.Ping(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return nil
	}

	sm.logger.Info("Shutting down service manager")
	sm.cancelRun()

	select {
	case <-sm.runDone:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for session event loop: %w", ctx.Err())
	}

	sm.initialized = false
	return nil
}
