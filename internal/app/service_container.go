package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"quiz-backend/internal/clients"
	"quiz-backend/internal/config"
	"quiz-backend/internal/db"
	"quiz-backend/internal/events"
	"quiz-backend/internal/interfaces"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/services"
	"quiz-backend/internal/utils"

	"gorm.io/gorm"
)

// ServiceContainer wires repositories, services and event sinks together.
type ServiceContainer struct {
	// Database
	DB *gorm.DB

	// Repositories
	AccountRepo      repository.AccountRepository
	DeploymentRepo   repository.DeploymentRepository
	EscrowRepo       repository.EscrowRepository
	ParticipantRepo  repository.ParticipantRepository
	RegistrationRepo repository.RegistrationRepository

	// Event sinks
	NATSClient  *clients.NATSClient
	PushService *services.WebSocketPushService
	Publisher   events.Publisher

	// Core Services
	RegistryService    *services.RegistryService
	QuizHandlerService *services.QuizHandlerService
	QuizEscrowService  *services.QuizEscrowService

	// Compiled-in handlers available for registration, by contract type
	AvailableHandlers map[string]interfaces.ContractHandler

	natsOnce sync.Once
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{
			DB: db.DB,
		}

		container.initRepositories()

		if err := container.initEventSinks(); err != nil {
			// NATS is optional, events still flow to WebSocket clients
			log.Printf("⚠️ NATS initialization skipped or failed: %v", err)
		}

		if err := container.initCoreServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize core services: %w", err)
			return
		}

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

func (c *ServiceContainer) initRepositories() {
	log.Println("📦 Initializing Repositories...")

	c.AccountRepo = repository.NewAccountRepository()
	c.DeploymentRepo = repository.NewDeploymentRepository(c.DB)
	c.EscrowRepo = repository.NewEscrowRepository(c.DB)
	c.ParticipantRepo = repository.NewParticipantRepository(c.DB)
	c.RegistrationRepo = repository.NewRegistrationRepository(c.DB)

	log.Println("✅ Repositories initialized")
}

// initEventSinks connects NATS and composes the publisher fan-out. The
// WebSocket push service always runs; NATS joins it when configured.
func (c *ServiceContainer) initEventSinks() error {
	c.PushService = services.NewWebSocketPushService()
	c.Publisher = c.PushService

	if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
		return fmt.Errorf("NATS not configured")
	}

	if err := c.InitNATSClient(); err != nil {
		return err
	}

	natsPublisher := events.NewNATSPublisher(c.NATSClient, config.AppConfig.Registry.Network)
	c.Publisher = events.NewMultiPublisher(natsPublisher, c.PushService)
	return nil
}

// InitNATSClient connects the NATS client once.
func (c *ServiceContainer) InitNATSClient() error {
	var initErr error

	c.natsOnce.Do(func() {
		log.Println("🔌 Connecting to NATS...")

		natsURL := config.AppConfig.NATS.URL
		streamName := config.AppConfig.NATS.StreamName
		if streamName == "" {
			streamName = "quiz-events"
		}

		natsClient, err := clients.NewNATSClient(natsURL, streamName)
		if err != nil {
			log.Printf("❌ Failed to connect to NATS at %s: %v", natsURL, err)
			log.Printf("   → Please ensure NATS server is running on port 4222 (or configured port)")
			initErr = fmt.Errorf("failed to create NATS client: %w", err)
			return
		}

		c.NATSClient = natsClient
		log.Printf("✅ NATS client connected: %s", natsURL)
	})

	return initErr
}

func (c *ServiceContainer) initCoreServices() error {
	log.Println("🔧 Initializing Core Services...")

	registryCfg := config.AppConfig.Registry

	handlerAddr, err := utils.ParseAddress(registryCfg.HandlerAddress)
	if err != nil {
		return fmt.Errorf("invalid registry.handlerAddress: %w", err)
	}
	operatorAddr, err := utils.ParseAddress(registryCfg.OperatorAddress)
	if err != nil {
		return fmt.Errorf("invalid registry.operatorAddress: %w", err)
	}

	c.QuizHandlerService, err = services.NewQuizHandlerService(
		c.DB,
		handlerAddr,
		operatorAddr,
		c.AccountRepo,
		c.EscrowRepo,
		c.DeploymentRepo,
		c.Publisher,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz handler service: %w", err)
	}

	c.AvailableHandlers = map[string]interfaces.ContractHandler{
		c.QuizHandlerService.HandlerInfo().ContractType: c.QuizHandlerService,
	}

	c.RegistryService = services.NewRegistryService(
		c.DB,
		c.AccountRepo,
		c.DeploymentRepo,
		c.RegistrationRepo,
		c.Publisher,
	)

	// Reattach handler bindings persisted before the last restart
	if err := c.RegistryService.RestoreHandlers(context.Background(), c.AvailableHandlers); err != nil {
		return fmt.Errorf("failed to restore handler registrations: %w", err)
	}

	c.QuizEscrowService = services.NewQuizEscrowService(
		c.DB,
		c.EscrowRepo,
		c.ParticipantRepo,
		c.AccountRepo,
		c.Publisher,
	)

	log.Println("✅ Core Services initialized")
	return nil
}

// Cleanup releases external connections.
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.NATSClient != nil {
		c.NATSClient.Close()
	}

	log.Println("✅ Service Container cleaned up")
}
