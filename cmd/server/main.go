package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jonatato/routeit-sub001/internal/config"
	"github.com/jonatato/routeit-sub001/internal/connectivity"
	"github.com/jonatato/routeit-sub001/internal/db"
	"github.com/jonatato/routeit-sub001/internal/handlers"
	"github.com/jonatato/routeit-sub001/internal/localstore"
	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/notifier"
	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/store"
	"github.com/jonatato/routeit-sub001/internal/syncer"
	"github.com/jonatato/routeit-sub001/internal/websocket"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.AppEnv == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer database.Close()

	ledgers := store.NewLedgerStore(database)
	members := store.NewMemberStore(database)
	expenses := store.NewExpenseStore(database)
	payments := store.NewPaymentStore(database)
	labels := store.NewLabelStore(database)
	comments := store.NewCommentStore(database)
	reminders := store.NewReminderStore(database)
	activities := store.NewActivityStore(database)
	txRunner := db.NewTxRunner(database)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := notifier.NewBus()
	bus.SetVisibility(func(ledgerID string) []string {
		lookupCtx, lookupCancel := context.WithTimeout(ctx, 5*time.Second)
		defer lookupCancel()
		userIDs, err := ledgers.VisibleUserIDs(lookupCtx, ledgerID)
		if err != nil {
			log.Warn().Err(err).Str("ledger_id", ledgerID).Msg("visibility lookup failed")
			return nil
		}
		return userIDs
	})
	hub := websocket.NewHub(bus)

	publisher := notifier.NewPublisher(cfg.KafkaBrokers)
	defer publisher.Close()
	consumer := notifier.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, bus, log)
	defer consumer.Close()
	go func() {
		if err := consumer.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("change consumer stopped")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	syncMetrics := syncer.NewMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	monitor := connectivity.NewMonitor()
	monitor.SetOnline()

	deps := service.Deps{
		TxRunner:   txRunner,
		Ledgers:    ledgers,
		Members:    members,
		Expenses:   expenses,
		Payments:   payments,
		Labels:     labels,
		Comments:   comments,
		Reminders:  reminders,
		Activities: activities,
		Monitor:    monitor,
		Publisher:  publisher,
		Log:        log,
	}

	if cfg.LocalStorePath != "" {
		local, err := localstore.Open(cfg.LocalStorePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.LocalStorePath).Msg("local store open failed")
		}
		defer local.Close()
		deps.Local = local

		svc := service.NewLedgerService(deps)
		loop := syncer.New(local, svc, monitor, syncer.Config{
			Interval:    cfg.SyncInterval,
			Timeout:     cfg.RemoteTimeout,
			MaxAttempts: cfg.SyncMaxRetries,
		}, syncMetrics, log)
		loop.OnDead(func(m models.PendingMutation) {
			bus.Publish(models.ChangeEvent{
				Type:     models.ChangeSyncFailed,
				Kind:     m.Kind,
				EntityID: m.ID,
				LedgerID: mutationLedgerID(m),
			})
		})
		go loop.Run(ctx)

		runServer(cfg, svc, members, hub, metricsHandler, log)
		return
	}

	svc := service.NewLedgerService(deps)
	runServer(cfg, svc, members, hub, metricsHandler, log)
}

func runServer(cfg config.Config, svc handlers.Service, members *store.MemberStore, hub *websocket.Hub, metrics http.Handler, log zerolog.Logger) {
	handler := handlers.New(cfg, svc, members, hub, metrics)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("ledger API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("shutdown error")
	}
}

// mutationLedgerID digs the ledger id out of a queued payload. Expense
// payloads nest it under the expense record; everything else carries it at the
// top level.
func mutationLedgerID(m models.PendingMutation) string {
	var probe struct {
		LedgerID string `json:"ledger_id"`
		Expense  struct {
			LedgerID string `json:"ledger_id"`
		} `json:"expense"`
	}
	if err := json.Unmarshal(m.Payload, &probe); err != nil {
		return ""
	}
	if probe.LedgerID != "" {
		return probe.LedgerID
	}
	return probe.Expense.LedgerID
}
