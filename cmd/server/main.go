package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenant-auth-control-plane/internal/audit"
	auditrepo "tenant-auth-control-plane/internal/audit/repository"
	"tenant-auth-control-plane/internal/config"
	"tenant-auth-control-plane/internal/db"
	"tenant-auth-control-plane/internal/db/migrate"
	"tenant-auth-control-plane/internal/identity/service"
	"tenant-auth-control-plane/internal/security"
	"tenant-auth-control-plane/internal/server"
	"tenant-auth-control-plane/internal/server/middleware"
	"tenant-auth-control-plane/internal/session"
	"tenant-auth-control-plane/internal/telemetry"
	otelsetup "tenant-auth-control-plane/internal/telemetry/otel"
	"tenant-auth-control-plane/internal/telemetry/producer"
	userrepo "tenant-auth-control-plane/internal/user/repository"
)

const serviceName = "tenant-auth-control-plane"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	conn, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	// SQLite deployments are self-contained; apply the schema on boot.
	// Postgres schemas are managed explicitly through cmd/migrate.
	if cfg.DBDriver == "sqlite" {
		if err := migrate.Run(conn, "sqlite", "up"); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	var users userrepo.Repository
	var auditLogs auditrepo.Repository
	switch cfg.DBDriver {
	case "postgres":
		users = userrepo.NewPostgresRepository(conn)
		auditLogs = auditrepo.NewPostgresRepository(conn)
	default:
		users = userrepo.NewSQLiteRepository(conn)
		auditLogs = auditrepo.NewSQLiteRepository(conn)
	}

	var emitters telemetry.MultiEmitter
	emitters = append(emitters, otelsetup.NewEventEmitter(providers.LoggerProvider))
	kafkaProducer, err := producer.NewKafkaProducer(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		defer kafkaProducer.Close()
	}

	recorder := audit.NewLogger(auditLogs, emitters, middleware.ClientIPFrom)
	authority := session.New(security.NewRandomGenerator(), cfg.TokenLength, cfg.SessionTTL())
	userService := service.NewUserService(users, security.NewHasher(cfg.BcryptCost), authority, recorder, cfg.QueryPageSize)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(server.Deps{Logger: logger, Users: userService, AuditLogs: auditLogs}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	// Give in-flight async audit emits time to land before the exporters stop.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", "error", err)
	}
	logger.Info("stopped")
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
