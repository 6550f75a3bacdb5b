package solarinverter

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

// MaxDataAge is how old inverter power may be before readings report 0 W PV.
const MaxDataAge = time.Minute

// Poller reads the inverter in the background so the 1s meter loop never
// waits on modbus.
type Poller struct {
	inv *Inverter

	mu     sync.RWMutex
	latest SolarData
}

func NewPoller(inv *Inverter) *Poller {
	return &Poller{inv: inv}
}

// Run polls until ctx is done. Returns at once when the inverter is not configured.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	if !p.inv.IsConfigured() {
		log.Println("Solar inverter not configured, PV reported as 0")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		data, err := p.inv.ReadSolarData()
		if err != nil {
			log.Warnf("Solar inverter read failed: %v", err)
		} else {
			p.mu.Lock()
			p.latest = data
			p.mu.Unlock()
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) Latest() SolarData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Apply merges the PV side into a meter reading. Without an inverter the
// installation has no PV, so both values are 0. Until the first successful
// read the PV counter stays absent, which keeps the reading out of daily totals.
func (p *Poller) Apply(reading *types.MeterReading, now time.Time) {
	if !p.inv.IsConfigured() {
		reading.PVPowerW = 0
		reading.PVEnergyTotalWh = types.Numeric(0)
		return
	}
	p.Latest().apply(reading, now)
}

func (d SolarData) apply(reading *types.MeterReading, now time.Time) {
	if d.ReadAt.IsZero() {
		return
	}
	// The yield counter only rises, so the last known value stays valid while
	// the inverter sleeps. Its power does not.
	reading.PVEnergyTotalWh = types.Numeric(d.TotalEnergyWh)
	if now.Sub(d.ReadAt) > MaxDataAge {
		return
	}
	// Standby draw is reported as negative production
	reading.PVPowerW = max(0, d.PowerW)
}
