package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"
	"google.golang.org/api/option"

	"firechat/internal/adapter/api"
	"firechat/internal/adapter/api/handler"
	apimiddleware "firechat/internal/adapter/api/middleware"
	"firechat/internal/adapter/api/router"
	"firechat/internal/adapter/repository"
	domainrepo "firechat/internal/domain/repository"
	"firechat/internal/domain/service"
	"firechat/internal/infrastructure/firebase"
	"firechat/internal/infrastructure/localstore"
	"firechat/internal/infrastructure/ratelimit"
	"firechat/internal/infrastructure/storage"
	"firechat/internal/infrastructure/websocket"
	"firechat/internal/usecase"
	"firechat/pkg/config"
	"firechat/pkg/logger"
)

type backend struct {
	chatRepo domainrepo.ChatRepository
	userRepo domainrepo.UserRepository
	identity usecase.IdentityProvider
	verifier usecase.TokenVerifier
	images   usecase.ImageStore
	closers  []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s backend: %v", cfg.Backend, err)
	}
	defer func() {
		for _, closeFn := range be.closers {
			closeFn()
		}
	}()

	store, err := newLocalStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()

	unread, err := usecase.NewUnreadTracker(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load unread counters: %v", err)
	}

	sendLimiter := ratelimit.NewRateLimiter(cfg.SendRatePerSec, cfg.SendBurst)
	sendLimiter.StartCleanupRoutine(ctx, 10*time.Minute)
	authLimiter := ratelimit.NewRateLimiter(5.0/60, 5)
	authLimiter.StartCleanupRoutine(ctx, 10*time.Minute)

	chats := usecase.NewChatStore(be.chatRepo, be.images, sendLimiter, cfg.AppendMode)
	directory := usecase.NewDirectoryUseCase(be.userRepo)
	sessions := usecase.NewSessionManager(be.identity, directory)
	resolver := service.NewChatNameResolver(cfg.Locale, time.Local)

	wsManager := websocket.NewManager(handler.NewChatDispatcher(sessions, chats, unread))
	wsManager.Start(ctx)

	watcher := usecase.NewChatListWatcher(chats, unread, resolver, wsManager)
	go watcher.Follow(ctx, sessions)

	unread.OnTotalChanged(func(total int) {
		if session := sessions.Current(); session != nil {
			wsManager.Publish(session.UID, websocket.MessageTypeUnreadTotal, "", usecase.UnreadTotal{Total: total})
		}
	})

	handler.Setup(handler.Dependencies{
		Sessions:  sessions,
		Directory: directory,
		Chats:     chats,
		Unread:    unread,
		Resolver:  resolver,
		Hub:       wsManager,
		Backend:   cfg.Backend,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(be.verifier, sessions)
	router.Setup(e, authMiddleware, authLimiter)

	go func() {
		logger.Info("Starting server on port %s (backend=%s, append=%s)", cfg.ServerPort, cfg.Backend, chats.AppendMode())
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sessions.SignOut()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}

func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Backend == config.BackendMemory {
		logger.Warn("Using in-memory backend; nothing is shared or persisted")
		identity := firebase.NewLocalIdentity()
		return &backend{
			chatRepo: repository.NewMemoryChatRepository(),
			userRepo: repository.NewMemoryUserRepository(),
			identity: identity,
			verifier: identity,
		}, nil
	}

	var opt option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))
	} else {
		if _, err := os.Stat(cfg.ServiceAccountPath); err != nil {
			return nil, err
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		opt = option.WithCredentialsFile(cfg.ServiceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		return nil, err
	}
	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		return nil, err
	}
	identity, err := firebase.NewIdentityClient(ctx, cfg.FirebaseApiKey)
	if err != nil {
		firestoreClient.Close()
		return nil, err
	}

	be := &backend{
		chatRepo: repository.NewFirestoreChatRepository(firestoreClient),
		userRepo: repository.NewFirestoreUserRepository(firestoreClient),
		identity: identity,
		verifier: firebase.NewFirebaseAuthClient(authClient),
		closers:  []func() error{firestoreClient.Close},
	}

	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
		if err != nil {
			firestoreClient.Close()
			return nil, err
		}
		be.images = storageClient
		be.closers = append(be.closers, storageClient.Close)
	} else {
		logger.Warn("STORAGE_BUCKET not set; image messages are disabled")
	}
	return be, nil
}

func newLocalStore(ctx context.Context, cfg *config.Config) (domainrepo.LocalStore, error) {
	switch cfg.LocalStore {
	case config.LocalStoreMemory:
		return localstore.NewMemoryStore(), nil
	case config.LocalStoreRedis:
		namespace := cfg.FirebaseProject
		if namespace == "" {
			namespace = "local"
		}
		return localstore.NewRedisStore(ctx, cfg.RedisURL, namespace)
	default:
		return localstore.NewFileStore(afero.NewOsFs(), cfg.LocalStorePath)
	}
}
