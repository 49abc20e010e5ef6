package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autopost/domain/repository"
	"autopost/infrastructure/cache"
	"autopost/infrastructure/clients/facebook"
	"autopost/infrastructure/configuration"
	"autopost/infrastructure/logger"
	"autopost/infrastructure/persistence"
	"autopost/infrastructure/pubsub"
	"autopost/infrastructure/servicebus"
	httpHandler "autopost/interfaces/http"
	"autopost/server"
	"autopost/usecase"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	if loaded := configuration.LoadEnvFromFile("config.env", ".env"); len(loaded) > 0 {
		logger.GetLogger().WithField("files", loaded).Info("Loaded env files")
		configuration.LoadConfig()
	}

	app := configuration.C.App
	groupPostConfig := configuration.C.GroupPost

	mongoClient, err := persistence.NewMongoDb(configuration.C.Database.Mongo.URI)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot connect to MongoDB")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	mongoDb := mongoClient.Database(configuration.C.Database.Mongo.Name)
	if err := persistence.EnsureIndexes(ctx, mongoDb, groupPostConfig.HistoryRetention); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while ensuring mongo indexes")
	}
	logger.GetLogger().Info("MongoDB connected successfully")

	jobRepository := persistence.NewGroupPostRepository(mongoDb)
	userRepository := persistence.NewUserRepository(mongoDb)
	transactionRepository := persistence.NewPointTransactionRepository(mongoDb)
	auditRepository := persistence.NewAuditActionRepository(mongoDb)

	historyRepository, janitorHistory := initiateHistoryStore(mongoDb)

	ledgerUsecase := usecase.NewLedgerUsecase(userRepository, transactionRepository)

	sinks := []usecase.IJobEventSink{
		usecase.NewHistorySink(historyRepository),
		usecase.NewSuccessAuditSink(auditRepository),
	}
	if configuration.C.Pubsub.ProjectID != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
		} else {
			publisher := pubsub.NewJobEventPublisher(pubSubClient, configuration.C.Pubsub.Topic)
			defer publisher.Close()
			sinks = append(sinks, publisher)
		}
	}
	if configuration.C.ServiceBus.Namespace != "" || configuration.C.ServiceBus.ConnectionString != "" {
		azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace, configuration.C.ServiceBus.ConnectionString)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus events")
		} else {
			defer func() {
				_ = azServiceBusClient.Close(context.Background())
			}()
			sinks = append(sinks, servicebus.NewJobEventSender(azServiceBusClient, configuration.C.ServiceBus.Queue))
		}
	}

	fb := configuration.C.Facebook
	poster := facebook.NewGraphClient(facebook.Config{
		BaseURL:       fb.GraphBaseURL,
		APIVersion:    fb.APIVersion,
		Timeout:       fb.Timeout,
		RatePerSecond: fb.RatePerSecond,
		Burst:         fb.Burst,
		BreakerWindow: fb.BreakerWindow,
		BreakerOpen:   fb.BreakerOpen,
	})

	runner := usecase.NewGroupPostRunner(
		jobRepository,
		ledgerUsecase,
		poster,
		auditRepository,
		usecase.NewEventDispatcher(sinks...),
		usecase.RunnerConfig{FlushEvery: groupPostConfig.FlushEvery, CancelWait: groupPostConfig.CancelWait},
	)

	var cancelBus cache.ICancelBus
	redisClient, err := cache.NewCache(
		ctx,
		configuration.C.RedisClient.Addr(),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - job cancellation stays local to this instance")
	} else {
		defer redisClient.Close()
		hostname, _ := os.Hostname()
		cancelBus = cache.NewCancelBus(redisClient, fmt.Sprintf("%s-%s", hostname, uuid.NewString()))
		g.Go(func() error {
			err := cancelBus.Subscribe(ctx, func(jobID string) {
				go runner.Stop(context.Background(), jobID)
			})
			if err != nil {
				logger.GetLogger().WithField("error", err).Error("Cancel subscription stopped")
			}
			return nil
		})
		logger.GetLogger().Info("Redis client initialized successfully.")
	}

	groupPostUsecase := usecase.NewGroupPostUsecase(jobRepository, historyRepository, ledgerUsecase, runner, cancelBus, groupPostConfig.MaxTargets)

	janitor := usecase.NewJanitor(jobRepository, janitorHistory, usecase.JanitorConfig{
		Schedule:         groupPostConfig.JanitorSchedule,
		JobRetention:     groupPostConfig.JobRetention,
		HistoryRetention: groupPostConfig.HistoryRetention,
	})
	if err := janitor.Start(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while scheduling janitor")
	}

	router := server.InitiateRouter(
		app.SecretKey,
		app.CorsOrigins,
		httpHandler.NewHealthHandler(),
		httpHandler.NewGroupPostHandler(groupPostUsecase),
		httpHandler.NewPointsHandler(ledgerUsecase),
	)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), groupPostConfig.ShutdownWait)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	<-janitor.Stop().Done()
	// In-flight jobs are failed with a full refund of what was not yet refunded.
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Group post runs did not finish before shutdown deadline")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// initiateHistoryStore returns the history repository and, for stores without native expiry,
// the repository the janitor purges.
func initiateHistoryStore(mongoDb *mongo.Database) (repository.IPostHistory, repository.IPostHistory) {
	if configuration.C.GroupPost.HistoryBackend != "postgres" {
		return persistence.NewPostHistoryRepository(mongoDb), nil
	}

	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL, falling back to mongo history")
		return persistence.NewPostHistoryRepository(mongoDb), nil
	}
	if err := persistence.EnsureHistorySchema(psqlDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring history schema")
	}
	history := persistence.NewPostHistoryRepositoryPG(psqlDb)
	logger.GetLogger().Info("PostgreSQL history store connected")
	return history, history
}
