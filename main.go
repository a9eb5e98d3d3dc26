package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/activity"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/facebook"
	"social-publisher/infrastructure/clients/instagram"
	"social-publisher/infrastructure/clients/linkedin"
	"social-publisher/infrastructure/clients/tiktok"
	"social-publisher/infrastructure/clients/twitter"
	"social-publisher/infrastructure/clients/youtube"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/crypto"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	"social-publisher/infrastructure/worker"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

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
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Env files never override the OS environment.
	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.Reload()
	app := configuration.C.App
	if app.SecretKey == "" {
		logger.GetLogger().Fatal("SECRET_KEY is required to verify API tokens")
	}

	db, vendor, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Database initialization failed")
	}
	defer db.Close()

	keys, err := crypto.NewKeyRing(configuration.C.Encryption.ActiveKeyID, configuration.C.Encryption.Keys)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Credential key ring is not configured")
	}

	var (
		credentialRepository    repository.ICredential
		scheduledPostRepository repository.IScheduledPost
	)
	if vendor == "mssql" {
		credentialRepository = persistence.NewCredentialRepositoryMSSQL(db, keys)
		scheduledPostRepository = persistence.NewScheduledPostRepositoryMSSQL(db)
	} else {
		credentialRepository = persistence.NewCredentialRepository(db, keys)
		scheduledPostRepository = persistence.NewScheduledPostRepository(db)
	}

	sinks, activityReader, closeSinks := initiateActivitySinks(ctx)
	defer closeSinks()
	activityLog := activity.NewFanout(sinks...)

	stateCache := initiateStateCache(ctx)

	hc := httpclient.NewClient(&http.Client{}, httpclient.Timeouts{
		Metadata: time.Duration(configuration.C.Publishing.MetadataTimeoutSeconds) * time.Second,
		Publish:  time.Duration(configuration.C.Publishing.PublishTimeoutSeconds) * time.Second,
		Media:    time.Duration(configuration.C.Publishing.MediaTimeoutSeconds) * time.Second,
	}, configuration.C.Publishing.RequestsPerSecond)
	registry := InitiateRegistry(hc, configuration.C.Publishing.Platforms)

	clients := func(p model.Platform) model.OAuthClient {
		conf := configuration.GetOAuthClient(string(p))
		return model.OAuthClient{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURI:  conf.RedirectURI,
			Scopes:       conf.Scopes,
		}
	}

	hub := realtime.NewPublishHub()
	publishingUsecase := usecase.NewPublishingUsecase(registry, credentialRepository, clients, activityLog, configuration.C.Publishing.FanoutLimit)
	oauthUsecase := usecase.NewOAuthUsecase(registry, credentialRepository, stateCache, clients, activityLog)
	schedulerUsecase := usecase.NewSchedulerUsecase(
		scheduledPostRepository,
		publishingUsecase,
		registry,
		hub,
		activityLog,
		configuration.C.Scheduler.BatchSize,
		configuration.C.Scheduler.Concurrency,
	)

	if configuration.C.Scheduler.Enabled {
		scheduler, err := worker.NewScheduler(configuration.C.Scheduler.Spec, schedulerUsecase, worker.DefaultSweepTimeout)
		if err != nil {
			logger.GetLogger().WithField("error", err).Fatal("Scheduler initialization failed")
		}
		g.Go(func() error {
			return scheduler.Run(ctx)
		})
	} else {
		logger.GetLogger().Info("Scheduler disabled; due posts are published via POST /api/schedule/process")
	}

	router := server.InitiateRouter(
		app.SecretKey,
		app.AllowedOrigins,
		httpHandler.NewConnectionHandler(oauthUsecase, publishingUsecase),
		httpHandler.NewPublishHandler(publishingUsecase),
		httpHandler.NewScheduleHandler(schedulerUsecase, hub),
		httpHandler.NewActivityHandler(activityReader),
	)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	activityLog.Wait(shutdownCtx)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
	logger.GetLogger().Info("Application stopped")
}

// InitiateDatabase opens the credential and scheduled post store and makes sure its tables exist.
// Production (or DB_VENDOR=mssql) uses SQL Server, everything else PostgreSQL.
func InitiateDatabase() (*sql.DB, string, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, "", fmt.Errorf("connect mssql: %w", err)
		}
		if err := persistence.EnsureCredentialSchemaMSSQL(db); err != nil {
			return nil, "", err
		}
		if err := persistence.EnsureScheduledPostSchemaMSSQL(db); err != nil {
			return nil, "", err
		}
		logger.GetLogger().Info("Connected to MSSQL")
		return db, "mssql", nil
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, "", fmt.Errorf("connect postgres: %w", err)
	}
	if err := persistence.EnsureCredentialSchema(db); err != nil {
		return nil, "", err
	}
	if err := persistence.EnsureScheduledPostSchema(db); err != nil {
		return nil, "", err
	}
	logger.GetLogger().Info("Connected to PostgreSQL")
	return db, "postgres", nil
}

// InitiateRegistry wires the publisher and OAuth handler of every enabled platform.
func InitiateRegistry(hc *httpclient.Client, platforms []string) *usecase.Registry {
	registry := usecase.NewRegistry()
	for _, name := range platforms {
		p, err := model.ParsePlatform(name)
		if err != nil {
			logger.GetLogger().WithField("platform", name).Warn("Skipping unknown platform")
			continue
		}
		switch p {
		case model.PlatformTwitter:
			registry.Register(twitter.NewPublisher(hc, twitter.Endpoints{}), twitter.NewOAuthHandler(hc, twitter.Endpoints{}))
		case model.PlatformLinkedIn:
			registry.Register(linkedin.NewPublisher(hc, linkedin.Endpoints{}), linkedin.NewOAuthHandler(hc, linkedin.Endpoints{}))
		case model.PlatformFacebook:
			registry.Register(facebook.NewPublisher(hc, facebook.Endpoints{}), facebook.NewOAuthHandler(hc, facebook.Endpoints{}, model.PlatformFacebook))
		case model.PlatformInstagram:
			registry.Register(instagram.NewPublisher(hc, instagram.Endpoints{}), instagram.NewOAuthHandler(hc, facebook.Endpoints{}))
		case model.PlatformTikTok:
			registry.Register(tiktok.NewPublisher(hc, tiktok.Endpoints{}), tiktok.NewOAuthHandler(hc, tiktok.Endpoints{}))
		case model.PlatformYouTube:
			registry.Register(youtube.NewPublisher(hc, youtube.Endpoints{}), youtube.NewOAuthHandler(hc, youtube.Endpoints{}))
		}
	}
	logger.GetLogger().WithField("platforms", registry.Platforms()).Info("Publishing platforms registered")
	return registry
}

// initiateActivitySinks connects every configured activity destination. A destination that
// is not reachable at startup is skipped; the service runs without it.
func initiateActivitySinks(ctx context.Context) ([]activity.Sink, httpHandler.ActivityReader, func()) {
	var (
		sinks   []activity.Sink
		reader  httpHandler.ActivityReader
		closers []func()
	)

	mongoConf := configuration.C.Database.Mongo
	if mongoConf.Host != "" {
		mongoClient, err := persistence.NewMongoDb(mongoConf.Host, mongoConf.Port, mongoConf.User, mongoConf.Password, mongoConf.Name)
		if err == nil {
			err = mongoClient.Ping(ctx, nil)
		}
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB not available - activity history disabled")
		} else {
			repo := persistence.NewActivityRepository(mongoClient, mongoConf.Name)
			sinks = append(sinks, activity.Sink{Name: "mongo", IActivitySink: repo})
			reader = repo
			closers = append(closers, func() { disconnectMongo(mongoClient) })
		}
	}

	if configuration.C.Pubsub.ProjectID != "" && configuration.C.Pubsub.ActivityTopic != "" {
		client, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - activity stream disabled")
		} else {
			publisher := pubsub.NewActivityPublisher(client, configuration.C.Pubsub.ActivityTopic)
			sinks = append(sinks, activity.Sink{Name: "pubsub", IActivitySink: publisher})
			closers = append(closers, func() {
				publisher.Close()
				_ = client.Close()
			})
		}
	}

	if configuration.C.ServiceBus.Namespace != "" && configuration.C.ServiceBus.ActivityQueue != "" {
		client, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - activity queue disabled")
		} else {
			queue := servicebus.NewActivityQueue(client, configuration.C.ServiceBus.ActivityQueue)
			sinks = append(sinks, activity.Sink{Name: "servicebus", IActivitySink: queue})
			closers = append(closers, func() { _ = client.Close(context.Background()) })
		}
	}

	return sinks, reader, func() {
		for _, c := range closers {
			c()
		}
	}
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB disconnect failed")
	}
}

// initiateStateCache keeps OAuth states in Redis so any instance can finish a flow.
// Without Redis the states live in process memory.
func initiateStateCache(ctx context.Context) repository.IOAuthStateCache {
	redisConf := configuration.C.RedisClient
	if redisConf.Host != "" {
		client, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", redisConf.Host, redisConf.Port),
			redisConf.Username,
			redisConf.Password,
		)
		if err == nil {
			logger.GetLogger().Info("Redis client initialized successfully.")
			return cache.NewOAuthStateCache(client)
		}
		logger.GetLogger().WithField("error", err).Warn("Redis not available - OAuth states kept in memory")
	}
	return cache.NewMemoryStateCache()
}
