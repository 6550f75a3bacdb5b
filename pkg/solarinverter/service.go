package solarinverter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"
)

var (
	ErrModbusNotConfigured = fmt.Errorf("modbus not configured") // may be intended
	ErrModbusReadFailed    = fmt.Errorf("modbus read failed")
	ErrModbusNotConnected  = fmt.Errorf("modbus not connected")
)

// Huawei SUN2000 holding registers
const (
	registerActivePower = 32080 // I32, W
	registerTotalYield  = 32106 // U32, 0.01 kWh
)

type Config struct {
	Ip               string
	ModbusPort       int
	WlanConnectionId string
}

// SolarData is one inverter sample.
type SolarData struct {
	PowerW        float64
	TotalEnergyWh float64
	ReadAt        time.Time
}

// Inverter caches reads to avoid spamming the poor inverter.
type Inverter struct {
	cfg      Config
	cacheTTL time.Duration

	mu       sync.Mutex
	lastRead SolarData
}

func NewInverter(cfg Config) *Inverter {
	return &Inverter{cfg: cfg, cacheTTL: 10 * time.Second}
}

// IsConfigured checks if the modbus configuration is set.
// This feature is optional, Empty values as config are acceptable.
func (inv *Inverter) IsConfigured() bool {
	return inv.cfg.Ip != "" &&
		inv.cfg.ModbusPort != 0 &&
		inv.cfg.WlanConnectionId != ""
}

func (inv *Inverter) ReadSolarData() (SolarData, error) {
	// Check if configured
	if !inv.IsConfigured() {
		return SolarData{}, ErrModbusNotConfigured
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.lastRead.ReadAt.After(time.Now().Add(-inv.cacheTTL)) {
		return inv.lastRead, nil
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Try reconnecting on retry attempts
			if err := inv.tryReconnect(); err != nil {
				lastErr = fmt.Errorf("reconnect failed on attempt %d: %w", attempt+1, err)
				continue
			}
		}

		// Ping check before attempting modbus connection
		if ok, _, err := ping(inv.cfg.Ip); !ok || err != nil {
			lastErr = fmt.Errorf("ping failed on attempt %d: %w", attempt+1, err)
			if attempt < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
			continue
		}

		data, err := inv.readRegisters()
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if attempt < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
			continue
		}

		inv.lastRead = data
		return data, nil
	}

	return SolarData{}, errors.Join(ErrModbusReadFailed, lastErr)
}

func (inv *Inverter) readRegisters() (SolarData, error) {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", inv.cfg.Ip, inv.cfg.ModbusPort))
	handler.Timeout = 10 * time.Second
	handler.SlaveId = 0

	if err := handler.Connect(); err != nil {
		handler.Close()
		return SolarData{}, fmt.Errorf("connection failed: %w", err)
	}
	defer handler.Close()

	// The 2s delay after connecting causes everything to not implode as much
	time.Sleep(2 * time.Second)
	client := modbus.NewClient(handler)

	power, err := client.ReadHoldingRegisters(registerActivePower, 2)
	if err != nil {
		return SolarData{}, fmt.Errorf("read power failed: %w", err)
	}
	yield, err := client.ReadHoldingRegisters(registerTotalYield, 2)
	if err != nil {
		return SolarData{}, fmt.Errorf("read yield failed: %w", err)
	}

	return decodeRegisters(power, yield, time.Now())
}

// decodeRegisters converts raw big-endian register pairs.
func decodeRegisters(power, yield []byte, at time.Time) (SolarData, error) {
	if len(power) < 4 || len(yield) < 4 {
		return SolarData{}, fmt.Errorf("short register response: %d/%d bytes", len(power), len(yield))
	}
	watts := int32(binary.BigEndian.Uint32(power))
	centiKwh := binary.BigEndian.Uint32(yield)

	return SolarData{
		PowerW:        float64(watts),
		TotalEnergyWh: float64(centiKwh) * 10,
		ReadAt:        at,
	}, nil
}

func (inv *Inverter) tryReconnect() error {
	// Check if already connected
	ok, _, err := ping(inv.cfg.Ip)
	if err == nil && ok {
		return nil // Already connected, no need to reconnect
	}

	// Try reconnecting to wifi
	cmd := exec.Command("nmcli", "connection", "up", inv.cfg.WlanConnectionId)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to bring up wifi connection: %w", err)
	}

	// Wait a bit for the connection to establish
	time.Sleep(5 * time.Second)

	// Check connection again
	ok, _, err = ping(inv.cfg.Ip)
	if err != nil {
		return err
	}
	if !ok {
		return ErrModbusNotConnected
	}
	return nil
}

func ping(host string) (bool, time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, 0, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	err = pinger.Run()
	if err != nil {
		return false, 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt, nil
	}

	return false, 0, fmt.Errorf("no response")
}
