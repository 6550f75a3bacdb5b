package meterdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

var _ aggregator.Store = (*Store)(nil)

func (s *Store) InsertReading(ctx context.Context, reading *types.MeterReading) error {
	sanitized := *reading
	sanitized.GridPowerW = finiteOrZero(reading.GridPowerW)
	sanitized.PVPowerW = finiteOrZero(reading.PVPowerW)

	payload := sanitized.ToJsonBytes()
	if payload == nil {
		return fmt.Errorf("encoding reading at %s", reading.Timestamp.Format(time.RFC3339))
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meter_readings (timestamp, grid_power_w, pv_power_w, payload) "+
			"VALUES (?, ?, ?, ?)",
		reading.Timestamp.UnixMilli(),
		sanitized.GridPowerW,
		sanitized.PVPowerW,
		string(payload),
	)
	return err
}

// ReadingsInRange returns readings with start <= timestamp < end, oldest first.
func (s *Store) ReadingsInRange(ctx context.Context, start, end time.Time) ([]types.MeterReading, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, grid_power_w, pv_power_w, payload FROM meter_readings "+
			"WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp ASC, id ASC",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []types.MeterReading
	for rows.Next() {
		var row meterReadingRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.GridPowerW, &row.PVPowerW, &row.Payload); err != nil {
			return nil, err
		}
		reading := types.MeterReadingFromJsonBytes([]byte(row.Payload))
		if reading == nil {
			// Keep the row so the validator counts it as rejected
			reading = &types.MeterReading{
				Timestamp:  time.UnixMilli(row.Timestamp),
				GridPowerW: row.GridPowerW,
				PVPowerW:   row.PVPowerW,
			}
		}
		readings = append(readings, *reading)
	}
	return readings, rows.Err()
}

func (s *Store) LatestReading(ctx context.Context) (*types.MeterReading, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM meter_readings ORDER BY timestamp DESC, id DESC LIMIT 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return types.MeterReadingFromJsonBytes([]byte(payload)), nil
}

func (s *Store) UpsertDailyTotals(ctx context.Context, dayStart time.Time, result aggregator.Result) error {
	row := DailyTotalsRow{
		DayStart:         dayStart.Unix(),
		Day:              dayStart.Format(time.DateOnly),
		ConsumptionWh:    result.Totals.ConsumptionWh,
		ProductionWh:     result.Totals.ProductionWh,
		InjectionWh:      result.Totals.InjectionWh,
		ImportFromGridWh: result.Totals.ImportFromGridWh,
		ValidCount:       result.ValidCount,
		RejectedCount:    result.RejectedCount,
		Capped:           strings.Join(result.Capped, ","),
		CounterReset:     result.CounterReset,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO daily_totals "+
			"(day_start, day, consumption_wh, production_wh, injection_wh, import_from_grid_wh, "+
			"valid_count, rejected_count, capped, counter_reset) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(day_start) DO UPDATE SET "+
			"day = excluded.day, consumption_wh = excluded.consumption_wh, "+
			"production_wh = excluded.production_wh, injection_wh = excluded.injection_wh, "+
			"import_from_grid_wh = excluded.import_from_grid_wh, valid_count = excluded.valid_count, "+
			"rejected_count = excluded.rejected_count, capped = excluded.capped, "+
			"counter_reset = excluded.counter_reset",
		row.DayStart, row.Day,
		row.ConsumptionWh, row.ProductionWh, row.InjectionWh, row.ImportFromGridWh,
		row.ValidCount, row.RejectedCount, row.Capped, row.CounterReset,
	)
	return err
}

// LatestDailyTotalsDay returns the start of the most recent closed day.
func (s *Store) LatestDailyTotalsDay(ctx context.Context) (time.Time, bool, error) {
	var dayStart sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(day_start) FROM daily_totals").Scan(&dayStart)
	if err != nil {
		return time.Time{}, false, err
	}
	if !dayStart.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(dayStart.Int64, 0), true, nil
}

// DailyTotalsFor looks a closed day up by its YYYY-MM-DD label.
func (s *Store) DailyTotalsFor(ctx context.Context, day string) (*DailyTotalsRow, error) {
	var row DailyTotalsRow
	err := s.db.QueryRowContext(ctx,
		"SELECT day_start, day, consumption_wh, production_wh, injection_wh, import_from_grid_wh, "+
			"valid_count, rejected_count, capped, counter_reset FROM daily_totals WHERE day = ?",
		day,
	).Scan(
		&row.DayStart, &row.Day,
		&row.ConsumptionWh, &row.ProductionWh, &row.InjectionWh, &row.ImportFromGridWh,
		&row.ValidCount, &row.RejectedCount, &row.Capped, &row.CounterReset,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM meter_readings WHERE timestamp < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r DailyTotalsRow) Totals() types.DailyTotals {
	return types.DailyTotals{
		ConsumptionWh:    r.ConsumptionWh,
		ProductionWh:     r.ProductionWh,
		InjectionWh:      r.InjectionWh,
		ImportFromGridWh: r.ImportFromGridWh,
	}
}

func (r DailyTotalsRow) Start() time.Time {
	return time.Unix(r.DayStart, 0)
}

// ReadingsSince returns everything from start on, oldest first.
func (s *Store) ReadingsSince(ctx context.Context, start time.Time) ([]types.MeterReading, error) {
	return s.ReadingsInRange(ctx, start, time.UnixMilli(math.MaxInt64))
}
