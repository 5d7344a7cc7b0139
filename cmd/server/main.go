// Command server runs the claim verification API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"veritas/internal/audit"
	claimservice "veritas/internal/claim/service"
	claimstore "veritas/internal/claim/store"
	credibilityservice "veritas/internal/credibility/service"
	credibilitystore "veritas/internal/credibility/store"
	httpapi "veritas/internal/http"
	"veritas/internal/identity/mailer"
	"veritas/internal/identity/otp"
	identityservice "veritas/internal/identity/service"
	identitystore "veritas/internal/identity/store"
	"veritas/internal/jwttoken"
	"veritas/internal/platform/config"
	"veritas/internal/platform/httpserver"
	"veritas/internal/platform/logger"
	"veritas/internal/platform/metrics"
	"veritas/internal/platform/postgres"
	"veritas/internal/platform/redis"
)

const auditBufferSize = 256

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	m := metrics.New()
	tokens := jwttoken.New(cfg.JWTSigningKey, "veritas", "veritas-api")

	// Storage. Postgres when configured, otherwise everything lives in
	// process memory.
	var (
		users      identityservice.UserStore
		userDir    claimservice.UserDirectory
		ledgerDir  credibilityservice.UserDirectory
		claims     claimservice.ClaimStore
		ledger     credibilityservice.Ledger
		auditStore audit.Store
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		pgUsers := identitystore.NewPostgres(db)
		users, userDir, ledgerDir = pgUsers, pgUsers, pgUsers
		claims = claimstore.NewPostgres(db)
		ledger = credibilitystore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		accounts, err := pgUsers.Count(ctx)
		if err != nil {
			return err
		}
		log.Info("storage backend ready", "backend", "postgres", "accounts", accounts)
	} else {
		memUsers := identitystore.NewInMemory()
		users, userDir, ledgerDir = memUsers, memUsers, memUsers
		claims = claimstore.NewInMemory()
		ledger = credibilitystore.NewInMemory()
		auditStore = audit.NewMemoryStore()
		log.Warn("no POSTGRES_URL set, using in-memory storage")
	}

	// OTP codes go to redis when available so restarts do not strand
	// half-finished registrations.
	var codes otp.CodeStore = otp.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err := redis.New(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		codes = otp.NewRedisStore(redisClient.Client)
		log.Info("otp store ready", "backend", "redis")
	}

	var sender mailer.Sender = mailer.NewLogSender(log)
	if cfg.SMTP.Host != "" {
		port, err := strconv.Atoi(cfg.SMTP.Port)
		if err != nil {
			port = 587
		}
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	group, ctx := errgroup.WithContext(ctx)

	// Audit trail. Kafka when brokers are configured; otherwise a local
	// worker drains events into the store.
	var publisher interface {
		Emit(ctx context.Context, event audit.Event) error
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		// Flush on a fresh context: by the time this runs the run context
		// is already cancelled.
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaPublisher.Close(flushCtx); err != nil {
				log.Warn("failed to flush audit producer", "error", err)
			}
		}()
		publisher = kafkaPublisher
		log.Info("audit publisher ready", "backend", "kafka", "topic", cfg.AuditTopic)
	} else {
		inbox := make(chan audit.Event, auditBufferSize)
		publisher = audit.NewChannelPublisher(inbox)
		worker := audit.NewWorker(auditStore, inbox, log)
		group.Go(func() error {
			return worker.Run(ctx)
		})
	}

	identitySvc := identityservice.New(users, codes, sender, tokens, cfg.TokenTTL, config.OTPTTL,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithMetrics(m),
	)
	claimSvc := claimservice.New(claims, userDir,
		claimservice.WithLogger(log),
		claimservice.WithAuditPublisher(publisher),
		claimservice.WithMetrics(m),
	)
	credibilitySvc := credibilityservice.New(ledger, ledgerDir,
		credibilityservice.WithLogger(log),
		credibilityservice.WithAuditPublisher(publisher),
		credibilityservice.WithMetrics(m),
	)

	if err := identitySvc.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		Tokens:      tokens,
		Roles:       identitySvc,
		Identity:    identitySvc,
		Claims:      claimSvc,
		Credibility: credibilitySvc,
	})

	server := httpserver.New(cfg.Addr, router)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
