package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/broadcaster"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/cache"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/db"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/events"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/lock"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/memory"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/notifier"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/redis"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/rest"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/scheduler"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/ws"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/app"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/config"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"
)

const (
	sinkTimeout     = 5 * time.Second
	sweepTimeout    = time.Minute
	notificationAge = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Nordic Loop bidding service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		store      outbound.Store
		listings   outbound.ListingProvider
		identities outbound.IdentityProvider
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		dbConn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbConn.Close()

		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare database schema")
		}

		store = db.NewStore(dbConn)
		listings = db.NewListingRepository(dbConn)
		identities = db.NewUserRepository(dbConn)
		log.Info().Msg("Database connection established")
	default:
		memStore, catalog := memory.NewStore(), memory.NewListings()
		catalog.TrackClosures(memStore)
		store, listings = memStore, catalog
		identities = memory.NewIdentities()
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
	}

	listingCache, err := cache.NewListings(cache.ListingsParams{
		Source: listings,
		Size:   cfg.Cache.Size,
		TTL:    cfg.Cache.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create listing cache")
	}

	redisClient := redis.NewClient(cfg.Redis)
	if err := redis.PingRedis(ctx, redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Redis connection established")

	var locker outbound.ListingLocker = lock.NewLocalLocker(cfg.Bidding.LockWait)
	if cfg.Bidding.LockBackend == config.LockRedis {
		locker = lock.NewRedisLocker(lock.RedisLockerParams{
			RedisClient: redisClient,
			Local:       locker,
			TTL:         cfg.Bidding.LockTTL,
			Wait:        cfg.Bidding.LockWait,
			Logger:      log.Logger,
		})
	}
	log.Info().Str("backend", cfg.Bidding.LockBackend).Msg("Listing locker initialized")

	// Events
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	defer redisBroadcaster.Close()

	sinks := []outbound.EventSink{redisBroadcaster}
	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("bidding-service"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()

		jetStream, err := notifier.NewJetStreamNotifier(ctx, notifier.JetStreamNotifierParams{
			Conn:   nc,
			Stream: cfg.NATS.Stream,
			MaxAge: notificationAge,
			Logger: log.Logger,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create JetStream notifier")
		}
		sinks = append(sinks, jetStream)
		log.Info().Str("stream", cfg.NATS.Stream).Msg("JetStream notifications enabled")
	}

	dispatcher := events.NewDispatcher(events.DispatcherParams{
		Sinks:         sinks,
		Workers:       cfg.Events.Workers,
		QueueCapacity: cfg.Events.QueueCapacity,
		Timeout:       sinkTimeout,
		Logger:        log.Logger,
	})

	// Business services
	closer := app.NewAuctionCloser(app.AuctionCloserParams{
		Store:       store,
		Listings:    listingCache,
		Locker:      locker,
		Events:      dispatcher,
		GracePeriod: cfg.Closer.GracePeriod,
		Concurrency: cfg.Closer.Concurrency,
		Logger:      log.Logger,
	})

	closingScheduler := scheduler.NewClosingScheduler(scheduler.ClosingSchedulerParams{
		RedisClient: redisClient,
		Closer:      closer,
		Logger:      log.Logger,
	})

	bidService, err := app.NewBidService(app.BidServiceParams{
		Store:            store,
		Listings:         listingCache,
		Identities:       identities,
		Locker:           locker,
		Events:           dispatcher,
		Scheduler:        closingScheduler,
		AutoBidIncrement: cfg.Bidding.AutoBidIncrement,
		CascadeMaxSteps:  cfg.Bidding.CascadeMaxSteps,
		Logger:           log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bid service")
	}
	log.Info().Msg("Business services initialized")

	closingScheduler.Start()
	log.Info().Msg("Closing scheduler started")

	sweeper := scheduler.NewSweeper(scheduler.SweeperParams{
		Closer:   closer,
		Schedule: cfg.Closer.SweepSchedule,
		Timeout:  sweepTimeout,
		Logger:   log.Logger,
	})
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start expiry sweeper")
	}

	server := ws.NewServer(ws.ServerParams{
		Config:      cfg,
		BidService:  bidService,
		Broadcaster: redisBroadcaster,
		Routes: []ws.RouteRegistrar{
			rest.NewHandler(rest.HandlerParams{
				BidService: bidService,
				Closer:     closer,
				AdminToken: cfg.Server.AdminToken,
				Logger:     log.Logger,
			}),
		},
		Logger: log.Logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start server")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping server")
	}

	sweeper.Stop()
	closingScheduler.Stop()
	log.Info().Msg("Schedulers stopped")

	// pending events are delivered before the sinks go away
	dispatcher.Close()

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
