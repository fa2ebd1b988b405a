package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	audithandler "origo/internal/audit/handler"
	auditservice "origo/internal/audit/service"
	auditstore "origo/internal/audit/store/event"
	entityhandler "origo/internal/entity/handler"
	entityservice "origo/internal/entity/service"
	entitystore "origo/internal/entity/store/entity"
	ingesthandler "origo/internal/ingest/handler"
	ingestservice "origo/internal/ingest/service"
	"origo/internal/ingest/secrets"
	jwttoken "origo/internal/jwt_token"
	"origo/internal/platform/config"
	"origo/internal/platform/httpserver"
	"origo/internal/platform/logger"
	platformmetrics "origo/internal/platform/metrics"
	platformredis "origo/internal/platform/redis"
	progressionhandler "origo/internal/progression/handler"
	progressionmetrics "origo/internal/progression/metrics"
	"origo/internal/progression/registry"
	progressionservice "origo/internal/progression/service"
	assignmentstore "origo/internal/progression/store/assignment"
	reconcilehandler "origo/internal/reconcile/handler"
	reconcilemetrics "origo/internal/reconcile/metrics"
	reconcileservice "origo/internal/reconcile/service"
	conflictstore "origo/internal/reconcile/store/conflict"
	fieldvaluestore "origo/internal/reconcile/store/fieldvalue"
	"origo/internal/sync/dedupe"
	"origo/internal/sync/links"
	syncmetrics "origo/internal/sync/metrics"
	syncmodels "origo/internal/sync/models"
	"origo/internal/sync/notifier"
	syncservice "origo/internal/sync/service"
	intakestore "origo/internal/sync/store/intake"
	syncworker "origo/internal/sync/worker"
	httptransport "origo/internal/transport/http"
)

// runner is a background loop tied to the process lifecycle.
type runner interface {
	Run(ctx context.Context) error
}

// main wires the stores, services, sync plumbing and HTTP surface, then
// runs until interrupted. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when a DSN is configured, in-memory otherwise.
	var (
		db            *sql.DB
		entities      entityservice.Store
		values        reconcileservice.FieldValueStore
		conflicts     reconcileservice.ConflictStore
		conflictGuard entityservice.ConflictGuard
		assignments   progressionservice.Store
		intake        syncservice.TableWriter
		auditEvents   auditservice.EventStore
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			fatal(log, "postgres open failed", err)
		}
		if err := db.PingContext(ctx); err != nil {
			fatal(log, "postgres ping failed", err)
		}
		defer db.Close()

		entities = entitystore.NewPostgres(db)
		values = fieldvaluestore.NewPostgres(db)
		pgConflicts := conflictstore.NewPostgres(db)
		conflicts = pgConflicts
		conflictGuard = pgConflicts
		assignments = assignmentstore.NewPostgres(db)
		intake = intakestore.NewPostgres(db)
		auditEvents = auditstore.NewPostgres(db)
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
		entities = entitystore.NewInMemory()
		values = fieldvaluestore.NewInMemory()
		memConflicts := conflictstore.NewInMemory()
		conflicts = memConflicts
		conflictGuard = memConflicts
		assignments = assignmentstore.NewInMemory()
		intake = intakestore.NewInMemory()
		auditEvents = auditstore.NewInMemory()
	}

	// Change ID dedupe: Redis when configured, per-process map otherwise.
	var ded dedupe.Deduper = dedupe.NewMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		fatal(log, "redis connection failed", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		ded = dedupe.NewRedis(redisClient.Client, config.DedupeTTL)
	}

	// Sync coordinator and the notifier bus carrying field changes.
	syncM := syncmetrics.New()
	coordinator := syncservice.NewCoordinator(links.Default(), ded, cfg.OriginTag, log, syncM)
	coordinator.RegisterWriter(syncmodels.TableMaster, syncservice.NewMasterWriter(values))
	coordinator.RegisterWriter(syncmodels.TableIntake, intake)

	var (
		publisher syncservice.Publisher
		workers   []runner
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notifier.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			fatal(log, "kafka notifier setup failed", err)
		}
		defer kafkaNotifier.Close()
		publisher = kafkaNotifier

		kafkaWorker, err := syncworker.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, coordinator, log)
		if err != nil {
			fatal(log, "kafka worker setup failed", err)
		}
		workers = append(workers, kafkaWorker)
	} else {
		log.Warn("KAFKA_BROKERS not set, using in-process change bus")
		bus := notifier.NewMemory()
		publisher = bus
		workers = append(workers, syncworker.NewChannel(bus.Subscribe(256), coordinator, log))
	}
	broadcaster := syncservice.NewBroadcaster(coordinator, publisher, cfg.OriginTag, log, syncM)

	// Audit trail: recorder feeds the persisting worker over a channel.
	recorder := auditservice.NewRecorder(log)
	workers = append(workers, auditservice.NewWorker(auditEvents, recorder.Inbox(), log))

	// Domain services.
	reconcileSvc := reconcileservice.New(entities, values, conflicts, broadcaster, recorder, reconcilemetrics.New())
	progressionSvc := progressionservice.New(registry.Default(), assignments, entities, recorder, progressionmetrics.New())
	entitySvc := entityservice.New(entities, conflictGuard)
	auditSvc := auditservice.New(auditEvents, values, entities)
	ingestSvc := ingestservice.New(reconcileSvc, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "origo", "origo-console")
	platformM := platformmetrics.New()

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     platformM,
		JWT:         jwtService,
		Entities:    entityhandler.New(entitySvc, log),
		Reconcile:   reconcilehandler.New(reconcileSvc, log),
		Progression: progressionhandler.New(progressionSvc, log),
		Audit:       audithandler.New(auditSvc, log),
		Ingest:      ingesthandler.New(ingestSvc, secrets.NewKeyring(cfg.IngestKeys), log),
		Health: func(ctx context.Context) error {
			if db != nil {
				return db.PingContext(ctx)
			}
			return nil
		},
	})

	for _, w := range workers {
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("background worker stopped", "error", err)
			}
		}()
	}

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting origo engine", "addr", cfg.Addr, "origin", cfg.OriginTag)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(log, "graceful shutdown failed", err)
	}
	log.Info("origo engine stopped")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
