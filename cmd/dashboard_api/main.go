// Dashboard API turns stored and live meter readings into flow views
// and serves them to the dashboard frontend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/cache"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/config"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/interpreter"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/meterdb"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/pathing"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/webapi"
)

func main() {
	config.LoadEnv()
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	cfg, err := config.LoadDashboardAPIConfig()
	if err != nil {
		log.Fatalf("Failed to load dashboard API config: %v", err)
	}
	loc, err := config.Location(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Read only, meter_collector owns the schema
	store, err := meterdb.Open(pathing.GetMeterDbPath())
	if err != nil {
		log.Fatalf("Failed to open meter database: %v", err)
	}
	defer store.Close()

	redisCache := connectCache(ctx, cfg.Redis)
	defer redisCache.Close()

	server := webapi.NewServer(store, redisCache, cfg.Engine, loc)

	go refreshToday(ctx, store, server, cfg.Engine, loc, cfg.RefreshInterval())

	go func() {
		u := interpreter.ListenerURL(cfg.InterpreterAPIHost, cfg.TLSEnabled)
		err := interpreter.StartListener(ctx, u, func(reading *types.MeterReading) {
			server.Publish(dashboard.RealtimeView(*reading, cfg.Engine, time.Now()))
		})
		if err != nil {
			log.Errorf("Realtime feed stopped, serving daily views only: %v", err)
		}
	}()

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	httpServer := &http.Server{
		Addr:        listener,
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting dashboard API on %s", listener)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// connectCache retries a few times, then runs without cache.
func connectCache(ctx context.Context, cfg config.RedisConfig) *cache.RedisCache {
	if cfg.Address == "" {
		return nil
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Address, cfg.Password, cfg.DB)
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.Address)
			return redisCache
		}
		lastErr = err
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	log.Warnf("Running without cache: %v", lastErr)
	return nil
}

// refreshToday recomputes today's view from the store on every tick.
func refreshToday(
	ctx context.Context,
	store *meterdb.Store,
	server *webapi.Server,
	engine dashboard.EngineConfig,
	loc *time.Location,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := time.Now()
		readings, err := store.ReadingsSince(ctx, aggregator.StartOfDay(now, loc))
		if err != nil {
			log.Warnf("Failed to load today's readings: %v", err)
		} else {
			view := dashboard.DailyView(readings, engine, now)
			logTodayAnomalies(view.Aggregation)
			server.Publish(view)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// logTodayAnomalies warns on capped totals. Rejects and resets are only
// debug here, the collector reports them once when it closes the day.
func logTodayAnomalies(result *aggregator.Result) {
	if result == nil {
		return
	}
	for _, field := range result.Capped {
		log.WithField("field", field).Warn("Today's total exceeded ceiling, capped")
	}
	if result.RejectedCount > 0 || result.CounterReset {
		log.WithFields(log.Fields{
			"valid":         result.ValidCount,
			"rejected":      result.RejectedCount,
			"counter_reset": result.CounterReset,
		}).Debug("Today's totals computed from partial data")
	}
}
