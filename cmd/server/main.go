package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/infrastructure/persistence"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/presentation/controllers"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/services"
	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
	"github.com/JomsTrinidad/master-data-utility/pkg/configuration"
	"github.com/JomsTrinidad/master-data-utility/pkg/eventbus"
	"github.com/JomsTrinidad/master-data-utility/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		logger.WithError(err).Fatal("connecting to postgres")
	}
	defer pool.Close()

	if conf.MigrateOnStart {
		if err := persistence.Migrate(ctx, conf.Database.Opts, logger); err != nil {
			logger.WithError(err).Fatal("applying migrations")
		}
	}

	bus := eventbus.NewEventPublisher(logger)
	registerEventLogging(bus, logger)

	refs := persistence.NewReferenceRepository()
	changes := persistence.NewChangeRequestRepository()
	caps := persistence.NewCapabilityRepository()

	api := controllers.NewRefdataAPIController(
		services.NewReferenceService(refs, caps),
		services.NewChangeRequestService(refs, changes, caps, bus),
		services.NewExportService(refs, changes),
		changes,
		conf.MaxUploadSize,
	)

	router := mux.NewRouter()
	router.Use(poolMiddleware(pool))
	api.Register(router)
	router.HandleFunc("/healthz", healthHandler(pool)).Methods(http.MethodGet)
	if conf.Prometheus.Enabled {
		metrics.NewPrometheusController(conf.Prometheus.Path).Register(router)
	}

	srv := &http.Server{
		Addr:         conf.SocketAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("addr", conf.SocketAddress).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// poolMiddleware makes the pgx pool available to repositories through the
// request context.
func poolMiddleware(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func registerEventLogging(bus eventbus.EventBus, logger *logrus.Logger) {
	bus.Subscribe(func(e changerequest.SubmittedEvent) {
		logger.WithFields(logrus.Fields{
			"change_request_id": e.ChangeRequestID,
			"reference_id":      e.ReferenceID,
			"display_id":        e.DisplayID,
			"row_count":         e.RowCount,
		}).Info("change request submitted")
	})
	bus.Subscribe(func(e changerequest.DecidedEvent) {
		logger.WithFields(logrus.Fields{
			"change_request_id": e.ChangeRequestID,
			"display_id":        e.DisplayID,
			"status":            e.Status,
			"decided_by_sid":    e.DecidedBySID,
		}).Info("change request decided")
	})
}
