// Package app assembles the repositories, usecases and background workers
// shared by the HTTP server and the maintenance commands.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	authUsecase "pmchat-backend/internal/auth/usecase"
	conversationRepo "pmchat-backend/internal/conversation/repository"
	conversationUsecase "pmchat-backend/internal/conversation/usecase"
	"pmchat-backend/internal/notification"
	notificationdomain "pmchat-backend/internal/notification/domain"
	notificationRepo "pmchat-backend/internal/notification/repository"
	projectRepo "pmchat-backend/internal/project/repository"
	projectUsecase "pmchat-backend/internal/project/usecase"
	taskRepo "pmchat-backend/internal/task/repository"
	"pmchat-backend/internal/task/scheduler"
	taskUsecase "pmchat-backend/internal/task/usecase"
	"pmchat-backend/pkg/ai"
	"pmchat-backend/pkg/chroma"
	"pmchat-backend/pkg/config"
	"pmchat-backend/pkg/database"
	"pmchat-backend/pkg/docstore"
	"pmchat-backend/pkg/events"
	"pmchat-backend/pkg/fcm"
	"pmchat-backend/pkg/gcp"

	firebase "firebase.google.com/go/v4"
)

// App holds every wired component
type App struct {
	Config *config.Config
	Store  docstore.Store

	TaskRepo    taskRepo.TaskRepository
	ProjectRepo projectRepo.ProjectRepository

	Tasks         taskUsecase.TaskUsecase
	Projects      projectUsecase.ProjectUsecase
	Employees     projectUsecase.EmployeeUsecase
	Risks         projectUsecase.RiskUsecase
	Aggregator    *projectUsecase.ProgressAggregator
	Linkage       *projectUsecase.LinkageUpdater
	LinkageWorker *projectUsecase.LinkageRetryWorker

	Conversations conversationUsecase.ConversationUsecase
	Relay         *conversationUsecase.ChatRelay
	Providers     *ai.Registry

	Auth authUsecase.AuthUsecase

	// Nil when no relational database is configured
	DeviceTokens notificationRepo.DeviceTokenRepository
	// Nil when push notifications are disabled
	Notifications *notification.Service
	Scheduler     *scheduler.TaskReminderScheduler

	publisher  events.Publisher
	subscriber events.Subscriber
	cancel     context.CancelFunc
}

// New builds the application from cfg. Optional integrations that are not
// configured are skipped with a log line.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var firebaseApp *firebase.App
	if cfg.StoreBackend == "firestore" || cfg.AuthMode == authUsecase.ModeFirebase || cfg.FirebaseCredentials != "" {
		fbApp, err := gcp.NewFirebaseApp(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
		if err != nil {
			return nil, err
		}
		firebaseApp = fbApp
	}

	store, err := newStore(ctx, cfg, firebaseApp)
	if err != nil {
		return nil, err
	}
	a.Store = store

	// Project side
	a.ProjectRepo = projectRepo.NewProjectRepository(store)
	a.Aggregator = projectUsecase.NewProgressAggregator(a.ProjectRepo)
	a.Linkage = projectUsecase.NewLinkageUpdater(a.ProjectRepo, a.Aggregator)
	a.LinkageWorker = projectUsecase.NewLinkageRetryWorker(a.Linkage, cfg.LinkageWorkers)
	a.Projects = projectUsecase.NewProjectUsecase(a.ProjectRepo, a.Aggregator)
	a.Employees = projectUsecase.NewEmployeeUsecase(projectRepo.NewEmployeeRepository(store))
	a.Risks = projectUsecase.NewRiskUsecase(projectRepo.NewRiskRepository(store), a.ProjectRepo)

	// Tasks
	a.TaskRepo = taskRepo.NewTaskRepository(store)
	a.Tasks = taskUsecase.NewTaskUsecase(a.TaskRepo, a.Linkage)
	a.Tasks.SetLinkageRetrier(a.LinkageWorker)

	if err := a.initEvents(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.Tasks.SetEventPublisher(a.publisher)

	// Conversations and chat
	a.Providers, err = ai.NewRegistry(ctx, ai.Config{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		MindsDBBaseURL: cfg.MindsDBBaseURL,
		MindsDBAPIKey:  cfg.MindsDBAPIKey,
		MindsDBModel:   cfg.MindsDBModel,
		Fallback:       ai.ProviderType(strings.ToLower(cfg.LLMFallback)),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Conversations = conversationUsecase.NewConversationUsecase(conversationRepo.NewConversationRepository(store))
	a.Relay = conversationUsecase.NewChatRelay(a.Conversations, a.Providers, cfg.LLMTimeout)

	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(ctx, cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Semantic search will not be available.", err)
		} else {
			a.Conversations.SetIndexer(chromaClient)
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Semantic search will not be available.")
	}

	a.Auth, err = authUsecase.New(ctx, cfg.AuthMode, cfg.JWTSecret, firebaseApp)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.initNotifications(ctx, cfg, firebaseApp)
	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, firebaseApp *firebase.App) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case "firestore":
		return docstore.NewFirestoreStore(ctx, firebaseApp)
	case "sqlite":
		log.Printf("[Store] Using sqlite at %s", cfg.SQLitePath)
		return docstore.NewSQLiteStore(cfg.SQLitePath)
	case "memory", "":
		log.Println("[Store] Using in-memory store; data is lost on restart")
		return docstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func (a *App) initEvents(ctx context.Context, cfg *config.Config) error {
	if cfg.PubSubEnabled {
		if cfg.GoogleProjectID == "" {
			return fmt.Errorf("GOOGLE_PROJECT_ID is required when PUBSUB_ENABLED=true")
		}
		// Accept a full resource name as well as the short topic name
		topicName := cfg.PubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		ps, err := events.NewPubSub(ctx, cfg.GoogleProjectID, topicName, gcp.ClientOptions(cfg.FirebaseCredentials)...)
		if err != nil {
			return err
		}
		a.publisher, a.subscriber = ps, ps
		log.Printf("[Events] Publishing task events to Pub/Sub topic %s", topicName)
		return nil
	}

	bus := events.NewLocalBus(256)
	a.publisher, a.subscriber = bus, bus
	log.Println("[Events] Publishing task events in-process")
	return nil
}

func (a *App) initNotifications(ctx context.Context, cfg *config.Config, firebaseApp *firebase.App) {
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not configured, device tokens and push notifications disabled")
		return
	}
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Printf("[ERROR] %v; push notifications disabled", err)
		return
	}
	if err := db.AutoMigrate(&notificationdomain.DeviceToken{}); err != nil {
		log.Printf("[ERROR] Failed to migrate device tokens: %v; push notifications disabled", err)
		return
	}
	a.DeviceTokens = notificationRepo.NewDeviceTokenRepository(db)

	if firebaseApp == nil {
		log.Println("[WARN] No Firebase credentials configured, FCM disabled")
		return
	}
	fcmClient, err := fcm.NewClient(ctx, firebaseApp)
	if err != nil {
		log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		return
	}
	a.Notifications = notification.NewService(a.DeviceTokens, fcmClient)
	a.Scheduler = scheduler.NewTaskReminderScheduler(a.TaskRepo, a.Notifications, cfg.ReminderInterval, cfg.ReminderWindow)
}

// Start launches the background workers
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.LinkageWorker.Start()

	if a.Notifications != nil {
		go a.Notifications.Start(ctx, a.subscriber)
		a.Scheduler.Start()
	} else if bus, ok := a.subscriber.(*events.LocalBus); ok {
		// Nobody consumes events; keep the buffer from filling up
		go bus.Subscribe(ctx, func(ctx context.Context, event events.TaskEvent) error { return nil })
	}
}

// Close stops the workers and releases every client
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.LinkageWorker != nil {
		a.LinkageWorker.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Printf("[App] Failed to close event publisher: %v", err)
		}
	}
	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			log.Printf("[App] Failed to close providers: %v", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			log.Printf("[App] Failed to close store: %v", err)
		}
	}
}
