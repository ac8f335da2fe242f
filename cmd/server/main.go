package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"meldish/internal/audit"
	"meldish/internal/emailcheck"
	invitationstore "meldish/internal/identity/store/invitation"
	pendingstore "meldish/internal/identity/store/pending"
	sessionstore "meldish/internal/identity/store/session"
	"meldish/internal/identity/store/tx"
	userstore "meldish/internal/identity/store/user"
	invitation "meldish/internal/invitation/service"
	"meldish/internal/jwttoken"
	"meldish/internal/mailer"
	"meldish/internal/password"
	"meldish/internal/platform/config"
	"meldish/internal/platform/httpserver"
	"meldish/internal/platform/logger"
	"meldish/internal/platform/metrics"
	"meldish/internal/platform/postgres"
	platformredis "meldish/internal/platform/redis"
	"meldish/internal/ratelimit"
	registration "meldish/internal/registration/service"
	social "meldish/internal/social/service"
	httptransport "meldish/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.ApplySchema(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient == nil {
		log.Error("redis is required for invitation sessions and rate limiting")
		os.Exit(1)
	}
	defer redisClient.Close()

	m := metrics.New()

	users := userstore.NewPostgres(db)
	pending := pendingstore.NewPostgres(db)
	invitations := invitationstore.NewPostgres(db)
	sessions := sessionstore.NewRedis(redisClient.Client)
	runner := tx.NewSQL(db)

	sender := mailer.NewSMTP(cfg.SMTP)
	passwords := password.NewManager()
	tokens := jwttoken.NewService(cfg.JWT.SigningKey, "meldish", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	filter := emailcheck.New(cfg.EmailCheck, emailcheck.NewRedisCache(redisClient.Client), emailcheck.WithLogger(log))
	limiter := ratelimit.New(ratelimit.NewRedisCounterStore(redisClient.Client), ratelimit.WithLogger(log))

	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka, audit.WithLogger(log))
		if err != nil {
			log.Error("kafka audit sink failed", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
	} else {
		log.Warn("no kafka brokers configured, audit events stay in memory")
		sink = audit.NewMemorySink()
	}
	publisher := audit.NewPublisher(sink, audit.WithAsyncBuffer(256), audit.WithPublisherLogger(log))
	defer publisher.Close()

	registrationSvc := registration.New(users, pending, runner, sender, passwords, tokens, filter, cfg.Registration,
		registration.WithLogger(log),
		registration.WithAuditPublisher(publisher),
		registration.WithMetrics(m),
	)
	invitationSvc := invitation.New(invitations, users, sessions, runner, sender, passwords, tokens, cfg.Registration,
		invitation.WithLogger(log),
		invitation.WithAuditPublisher(publisher),
		invitation.WithMetrics(m),
	)
	socialSvc := social.New(users, invitations, invitationSvc, runner, tokens,
		social.WithLogger(log),
		social.WithAuditPublisher(publisher),
		social.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Registration: registrationSvc,
		Invitation:   invitationSvc,
		Social:       socialSvc,
		Limiter:      limiter,
		RateLimit:    cfg.RateLimit,
		Logger:       log,
		Health: func() error {
			if err := db.Ping(); err != nil {
				return err
			}
			return redisClient.Health(context.Background())
		},
	})

	srv := httpserver.New(cfg.HTTP.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting meldish", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
