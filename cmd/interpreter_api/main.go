// Interpreter API is responsible for reading the P1 port and broadcasting the readings.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/config"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/pathing"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/port_reader"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/solarinverter"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/webapi"
)

const solarPollInterval = 10 * time.Second

// latest holds the last reading with the PV side merged in.
type latest struct {
	mu      sync.RWMutex
	reading *types.MeterReading
}

func (l *latest) set(r *types.MeterReading) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reading = r
}

func (l *latest) get() *types.MeterReading {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reading
}

func main() {
	config.LoadEnv()
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	cfg, err := config.LoadInterpreterAPIConfig()
	if err != nil {
		log.Fatalf("Failed to load interpreter API config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inverter := solarinverter.NewInverter(solarinverter.Config{
		Ip:               cfg.SolarInverterIp,
		ModbusPort:       cfg.SolarInverterModbusPort,
		WlanConnectionId: cfg.WlanConnectionId,
	})
	solar := solarinverter.NewPoller(inverter)
	go solar.Run(ctx, solarPollInterval)

	hub := webapi.NewHub()
	var last latest

	// Start reading P1 port and handle signals/errors
	p1Reader := port_reader.NewP1Reader(cfg.SerialDevice, cfg.Baudrate, time.Local)
	p1Reader.StartReading(ctx,
		func(reading *types.MeterReading) {
			merged := *reading
			solar.Apply(&merged, time.Now())
			last.set(&merged)
			if msg := merged.ToJsonBytes(); msg != nil {
				hub.Broadcast(msg)
			}
		},
		func(err error) {
			if err != nil {
				log.Fatalf("Error reading P1 port: %v", err)
			}
		},
	)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"message": "European Smart Meter API",
			"status":  "running",
			"clients": hub.ClientCount(),
		}, http.StatusOK)
	}).Methods("GET")

	router.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		reading := last.get()
		if reading == nil {
			respondJSON(w, map[string]string{"error": "No readings available yet"}, http.StatusNotFound)
			return
		}
		respondJSON(w, reading, http.StatusOK)
	}).Methods("GET")

	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		// Send current reading immediately if available
		var initial [][]byte
		if reading := last.get(); reading != nil {
			initial = append(initial, reading.ToJsonBytes())
		}
		hub.ServeWS(w, r, initial...)
	})

	router.HandleFunc("/solar", func(w http.ResponseWriter, r *http.Request) {
		if !inverter.IsConfigured() {
			respondJSON(w, map[string]string{"error": solarinverter.ErrModbusNotConfigured.Error()}, http.StatusNotFound)
			return
		}
		data := solar.Latest()
		if data.ReadAt.IsZero() {
			respondJSON(w, map[string]string{"error": "No inverter data yet"}, http.StatusServiceUnavailable)
			return
		}
		respondJSON(w, map[string]any{
			"currentProduction": data.PowerW,
			"totalEnergyWh":     data.TotalEnergyWh,
			"readAt":            data.ReadAt,
		}, http.StatusOK)
	}).Methods("GET")

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	server := &http.Server{
		Addr:        listener,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting European Smart Meter Interpreter API on %s", listener)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
