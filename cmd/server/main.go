package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridecore/internal/app"
	"ridecore/internal/assignment"
	"ridecore/internal/config"
	"ridecore/internal/geoindex"
	"ridecore/internal/handler"
	"ridecore/internal/matcher"
	"ridecore/internal/orchestrator"
	"ridecore/internal/payment"
	"ridecore/internal/store/postgres"
	"ridecore/internal/trip"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	server, index := wireServer(db, redisClient, nrApp, cfg)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSweepLoop(sweepCtx, index, cfg.Matching.MaxPositionAge)
	defer stopSweep()

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server, along with
// the GeoIndex so the caller can run a periodic Sweep.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, geoindex.GeoIndex) {
	index := geoindex.NewRedisGeoIndex(redisClient, cfg.Matching.MaxPositionAge)

	rideRepo := postgres.NewRideRepository(db)
	assignRepo := postgres.NewAssignmentRepository(db)
	tripRepo := postgres.NewTripRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	idempotencyRepo := postgres.NewIdempotencyRepository(db)

	psp := payment.MockPSP{}
	settler := payment.New(paymentRepo, psp, cfg.Matching.SettlementDelay, time.Now)

	tripManager := trip.New(db, tripRepo, paymentRepo, index, time.Now, settler.Enqueue)
	assignManager := assignment.New(db, assignRepo, rideRepo, tripManager, cfg.Matching.AssignmentTTL, time.Now)
	match := matcher.New(index, time.Now)
	orch := orchestrator.New(db, rideRepo, idempotencyRepo, match, assignManager, cfg.Matching.MatchRadiusKm, time.Now)

	rideHandler := handler.NewRideHandler(orch, rideRepo, assignRepo)
	driverHandler := handler.NewDriverHandler(index, assignManager, time.Now)
	tripHandler := handler.NewTripHandler(tripManager, time.Now)
	paymentHandler := handler.NewPaymentHandler(paymentRepo, tripRepo, rideRepo, time.Now)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		DriverHandler:  driverHandler,
		TripHandler:    tripHandler,
		PaymentHandler: paymentHandler,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, index
}

// runSweepLoop periodically evicts stale positions from the GeoIndex. It is
// a secondary-index GC, not the source of freshness truth.
func runSweepLoop(ctx context.Context, index geoindex.GeoIndex, maxAge time.Duration) {
	interval := maxAge / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted, err := index.Sweep(ctx, time.Now()); err != nil {
				log.Printf("geoindex sweep failed: %v", err)
			} else if evicted > 0 {
				log.Printf("geoindex sweep evicted %d stale positions", evicted)
			}
		}
	}
}
