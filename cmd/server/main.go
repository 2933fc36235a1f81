// Command server runs the event ingress gateway: every request passes the
// access gate before it can reach the event sink.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"eventgate/internal/events"
	eventshandler "eventgate/internal/events/handler"
	"eventgate/internal/gate"
	gatemetrics "eventgate/internal/gate/metrics"
	"eventgate/internal/integrity"
	noncestore "eventgate/internal/integrity/store/nonce"
	"eventgate/internal/platform/config"
	"eventgate/internal/platform/httpserver"
	"eventgate/internal/platform/logger"
	"eventgate/internal/platform/postgres"
	redisplatform "eventgate/internal/platform/redis"
	"eventgate/internal/principal"
	principalmemory "eventgate/internal/principal/store/memory"
	principalpg "eventgate/internal/principal/store/postgres"
	ratelimithandler "eventgate/internal/ratelimit/handler"
	ratemetrics "eventgate/internal/ratelimit/metrics"
	ratelimit "eventgate/internal/ratelimit/service"
	"eventgate/internal/ratelimit/store/counter"
	"eventgate/internal/token"
	tokenhandler "eventgate/internal/token/handler"
	httptransport "eventgate/internal/transport/http"
	"eventgate/pkg/platform/audit/publisher"
	kafkapublisher "eventgate/pkg/platform/audit/publishers/kafka"
	auditmemory "eventgate/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]func(context.Context) error{}

	// Shared stores. Redis backs replay protection and rate counting across
	// instances; without it both degrade to process-local memory, which is
	// only safe single-instance.
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	var nonces integrity.NonceStore
	var counters ratelimit.CounterStore
	if redisClient != nil {
		defer redisClient.Close()
		nonces = noncestore.NewRedisStore(redisClient.Client)
		counters = counter.NewRedisCounterStore(redisClient.Client)
		healthChecks["redis"] = redisClient.Health
	} else {
		log.Warn("redis not configured, using in-memory stores (single instance only)")
		nonces = noncestore.NewInMemoryStore()
		counters = counter.NewInMemoryCounterStore()
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return err
	}
	var principals principal.Store
	if db != nil {
		defer db.Close()
		principals = principalpg.NewPostgresStore(db)
		healthChecks["postgres"] = db.PingContext
	} else {
		log.Warn("postgres not configured, using in-memory principal store with development site",
			"site_id", cfg.Dev.SiteID)
		mem := principalmemory.NewInMemoryStore()
		mem.AddSite(principal.Site{
			ID:       cfg.Dev.SiteID,
			TenantID: cfg.Dev.TenantID,
			Salt:     cfg.Dev.SiteSalt,
			Status:   principal.StatusActive,
		})
		mem.AddAPIKey(cfg.Dev.APIKey, cfg.Dev.SiteID)
		principals = mem
	}

	tokens := token.NewService(cfg.Token.SigningKey, cfg.Token.Issuer,
		token.WithAccessLifetime(cfg.Token.AccessLifetime),
		token.WithRefreshLifetime(cfg.Token.RefreshLifetime),
	)
	integritySvc := integrity.NewService(cfg.Integrity.BaseSecret, nonces,
		integrity.WithMaxAge(cfg.Integrity.MaxAge))

	// Audit fan-out: Kafka when brokers are configured, otherwise a buffered
	// in-process publisher so the gate never blocks on audit delivery.
	var auditPublisher gate.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := kafkapublisher.New(ctx, cfg.Kafka.Brokers,
			kafkapublisher.WithTopic(cfg.Kafka.AuditTopic))
		if err != nil {
			return err
		}
		defer kp.Close()
		auditPublisher = kp
	} else {
		p := publisher.NewPublisher(auditmemory.NewInMemoryStore(),
			publisher.WithLogger(log),
			publisher.WithAsyncBuffer(1024),
		)
		defer p.Close()
		auditPublisher = p
	}

	limiter, err := ratelimit.New(counters,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratemetrics.New()),
		ratelimit.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	g, err := gate.New(tokens, principals, integritySvc, limiter,
		gate.WithLogger(log),
		gate.WithMetrics(gatemetrics.New()),
		gate.WithAuditPublisher(auditPublisher),
		gate.WithRateLimitDisabled(cfg.RateLimit.Disabled),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Gate:              g,
		Events:            eventshandler.New(events.NewMemorySink(), log),
		Tokens:            tokenhandler.New(tokens, principals, log),
		Admin:             ratelimithandler.New(limiter, log),
		AdminTokenHash:    cfg.RateLimit.AdminTokenHash,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		Logger:            log,
		HealthChecks:      healthChecks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info("starting eventgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return grp.Wait()
}
