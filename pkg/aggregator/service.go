package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/esmutils"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/metrics"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/validator"
)

// How far back a single run will close missed days.
const maxCatchUpDays = 31

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NextDay returns the start of the day after dayStart. DST safe.
func NextDay(dayStart time.Time) time.Time {
	return time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day()+1, 0, 0, 0, 0, dayStart.Location())
}

// Report logs and counts the anomalies of a reduction.
// The engine only clamps; surfacing is done here.
func Report(scope string, result Result) {
	for _, err := range result.Rejected {
		metrics.SamplesRejected.WithLabelValues(validator.Reason(err)).Inc()
		log.WithField("scope", scope).Debugf("Rejected sample: %v", err)
	}
	if len(result.Rejected) > 0 {
		log.WithFields(log.Fields{
			"scope":    scope,
			"rejected": len(result.Rejected),
			"valid":    result.ValidCount,
		}).Warn("Skipped malformed readings")
	}
	for _, field := range result.Capped {
		metrics.TotalsCapped.WithLabelValues(field).Inc()
		log.WithFields(log.Fields{"scope": scope, "field": field}).Warn("Daily total exceeded ceiling, capped")
	}
	if result.CounterReset {
		metrics.CounterResets.Inc()
		log.WithField("scope", scope).Warn("Counter reset detected, window discarded")
	}
}

// aggregateDay closes one local day into the daily_totals table.
func aggregateDay(ctx context.Context, store Store, dayStart time.Time, opts Options) error {
	readings, err := store.ReadingsInRange(ctx, dayStart, NextDay(dayStart))
	if err != nil {
		return fmt.Errorf("reading day %s: %w", dayStart.Format(time.DateOnly), err)
	}

	result := Aggregate(readings, opts)
	Report(dayStart.Format(time.DateOnly), result)

	if err := store.UpsertDailyTotals(ctx, dayStart, result); err != nil {
		return fmt.Errorf("storing day %s: %w", dayStart.Format(time.DateOnly), err)
	}

	log.Printf("Closed %s: consumption %s, production %s, injection %s",
		dayStart.Format(time.DateOnly),
		formatKwh(result.Totals.ConsumptionWh),
		formatKwh(result.Totals.ProductionWh),
		formatKwh(result.Totals.InjectionWh),
	)
	return nil
}

func formatKwh(wh float64) string {
	return humanize.FormatFloat("#,###.##", esmutils.WhToKwh(wh)) + " kWh"
}

// cleanupOldData removes raw readings older than 3 months if we have aggregated them
func cleanupOldData(ctx context.Context, store Store, now time.Time) error {
	cutoff := now.AddDate(0, -3, 0)

	lastDay, ok, err := store.LatestDailyTotalsDay(ctx)
	if err != nil {
		return err
	}
	// Only clean up what has been closed into daily totals
	if !ok || lastDay.Before(cutoff) {
		return nil
	}

	deleted, err := store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		log.Printf("Cleaned up %s readings older than %s", humanize.Comma(deleted), cutoff.Format(time.RFC3339))
	}
	return nil
}

// AggregateAndCleanup closes every finished day not yet in the daily_totals table,
// then prunes old raw readings. This is the main function to call on a schedule.
func AggregateAndCleanup(ctx context.Context, store Store, opts Options, now time.Time, loc *time.Location) error {
	today := StartOfDay(now, loc)

	first := today.AddDate(0, 0, -1)
	lastDay, ok, err := store.LatestDailyTotalsDay(ctx)
	if err != nil {
		return fmt.Errorf("finding last closed day: %w", err)
	}
	if ok {
		first = NextDay(StartOfDay(lastDay, loc))
	}
	if oldest := today.AddDate(0, 0, -maxCatchUpDays); first.Before(oldest) {
		first = oldest
	}

	for day := first; day.Before(today); day = NextDay(day) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := aggregateDay(ctx, store, day, opts); err != nil {
			log.Printf("Error aggregating day: %v", err)
			return err
		}
	}

	if err := cleanupOldData(ctx, store, now); err != nil {
		log.Printf("Error cleaning up old data: %v", err)
		return err
	}

	log.Println("Aggregation and cleanup completed successfully")
	return nil
}
