// Responsible for storing the data collected from the smart meter
// and closing finished days into daily totals.
// Depends on the interpreter API being online.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/config"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/interpreter"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/meterdb"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/metrics"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/mqttpublish"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/pathing"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/validator"
)

func main() {
	config.LoadEnv()
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	cfg, err := config.LoadMeterCollectorConfig()
	if err != nil {
		log.Fatalf("Failed to load meter collector config: %v", err)
	}
	loc, err := config.Location(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	store, err := meterdb.InitializeDatabase(pathing.GetMeterDbPath())
	if err != nil {
		log.Fatalf("Failed to initialize meter database: %v", err)
	}
	defer store.Close()

	publisher, err := mqttpublish.Connect(ctx, cfg.MQTT)
	if err != nil {
		log.Warnf("MQTT disabled: %v", err)
		publisher = nil
	}
	defer publisher.Close()

	go runAggregation(ctx, store, publisher, cfg.Daily, loc, time.Duration(cfg.AggregateIntervalMinutes)*time.Minute)

	// Subscribe to websocket with revive
	u := interpreter.ListenerURL(cfg.InterpreterAPIHost, cfg.TLSEnabled)
	err = interpreter.StartListener(ctx, u, func(reading *types.MeterReading) {
		handleMeterReading(ctx, store, reading)
	})
	if err != nil {
		log.Fatalf("Interpreter listener stopped: %v", err)
	}
	log.Println("Meter collector stopped")
}

// handleMeterReading stores every reading the interpreter could parse.
// Readings with unusable counters are still stored for realtime use and are
// left out of daily totals by the aggregator.
func handleMeterReading(ctx context.Context, store *meterdb.Store, reading *types.MeterReading) {
	if _, err := validator.Validate(*reading); err != nil {
		metrics.ReadingsReceived.WithLabelValues("rejected").Inc()
		log.WithField("reason", validator.Reason(err)).Debugf("Reading will not count towards totals: %v", err)
	}

	if err := store.InsertReading(ctx, reading); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Errorf("Failed to store reading: %v", err)
		}
		metrics.ReadingsReceived.WithLabelValues("failed").Inc()
		return
	}
	metrics.ReadingsReceived.WithLabelValues("stored").Inc()
}

// runAggregation closes finished days now and then on every tick.
func runAggregation(
	ctx context.Context,
	store *meterdb.Store,
	publisher *mqttpublish.Publisher,
	opts aggregator.Options,
	loc *time.Location,
	interval time.Duration,
) {
	interval = max(time.Minute, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := time.Now()
		if err := aggregator.AggregateAndCleanup(ctx, store, opts, now, loc); err != nil {
			log.Errorf("Daily aggregation failed: %v", err)
		} else {
			publishYesterday(ctx, store, publisher, now, loc)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func publishYesterday(ctx context.Context, store *meterdb.Store, publisher *mqttpublish.Publisher, now time.Time, loc *time.Location) {
	if publisher == nil {
		return
	}
	day := aggregator.StartOfDay(now, loc).AddDate(0, 0, -1).Format(time.DateOnly)
	row, err := store.DailyTotalsFor(ctx, day)
	if err != nil || row == nil {
		log.Debugf("No closed totals for %s to publish: %v", day, err)
		return
	}
	if err := publisher.PublishDay(day, row.Totals()); err != nil {
		log.Warnf("Failed to publish %s to MQTT: %v", day, err)
	}
}
