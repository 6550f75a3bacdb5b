// Package webapi serves dashboard views over HTTP and pushes them to websocket clients.
package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/cache"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/metrics"
)

const cacheTimeout = 2 * time.Second

type Server struct {
	hub    *Hub
	views  viewState
	days   ClosedDays
	cache  *cache.RedisCache
	engine dashboard.EngineConfig
	loc    *time.Location
}

// NewServer accepts a nil cache.
func NewServer(days ClosedDays, redisCache *cache.RedisCache, engine dashboard.EngineConfig, loc *time.Location) *Server {
	return &Server{
		hub:    NewHub(),
		days:   days,
		cache:  redisCache,
		engine: engine,
		loc:    loc,
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.HealthHandler).Methods("GET")
	router.HandleFunc("/api/realtime", s.RealtimeHandler).Methods("GET")
	router.HandleFunc("/api/today", s.TodayHandler).Methods("GET")
	router.HandleFunc("/api/daily/{date}", s.ClosedDayHandler).Methods("GET")
	router.HandleFunc("/ws", s.WebSocketHandler)
	router.Handle("/metrics", promhttp.Handler())

	router.Use(metricsMiddleware)
	return router
}

// Publish makes view the current one of its mode and pushes it to every client.
func (s *Server) Publish(view dashboard.View) {
	s.views.set(view)
	metrics.ViewsComputed.WithLabelValues(string(view.Mode)).Inc()

	if msg := (Envelope{Type: view.Mode, Payload: view}).Bytes(); msg != nil {
		s.hub.Broadcast(msg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := s.cache.StoreView(ctx, view); err != nil {
		log.Warnf("Failed to cache %s view: %v", view.Mode, err)
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]any{
		"status":   "running",
		"clients":  s.hub.ClientCount(),
		"realtime": s.views.get(flowgraph.ModeRealtime) != nil,
		"daily":    s.views.get(flowgraph.ModeDaily) != nil,
	}, http.StatusOK)
}

func (s *Server) RealtimeHandler(w http.ResponseWriter, r *http.Request) {
	s.serveLatest(w, r, flowgraph.ModeRealtime)
}

func (s *Server) TodayHandler(w http.ResponseWriter, r *http.Request) {
	s.serveLatest(w, r, flowgraph.ModeDaily)
}

// serveLatest falls back to the shared cache before the first local refresh.
func (s *Server) serveLatest(w http.ResponseWriter, r *http.Request, mode flowgraph.Mode) {
	if view := s.views.get(mode); view != nil {
		s.respondJSON(w, view, http.StatusOK)
		return
	}

	view, err := s.cache.LatestView(r.Context(), mode)
	if err != nil {
		log.Warnf("Cache lookup failed: %v", err)
	}
	if view == nil {
		s.respondError(w, "No readings available yet", http.StatusNotFound)
		return
	}
	s.respondJSON(w, view, http.StatusOK)
}

func (s *Server) ClosedDayHandler(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.ParseInLocation(time.DateOnly, date, s.loc); err != nil {
		s.respondError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if view, err := s.cache.ClosedDay(r.Context(), date); err != nil {
		log.Warnf("Cache lookup failed: %v", err)
	} else if view != nil {
		s.respondJSON(w, view, http.StatusOK)
		return
	}

	row, err := s.days.DailyTotalsFor(r.Context(), date)
	if err != nil {
		log.Errorf("Failed to load day %s: %v", date, err)
		s.respondError(w, "Failed to load day", http.StatusInternalServerError)
		return
	}
	if row == nil {
		s.respondError(w, "Day not aggregated", http.StatusNotFound)
		return
	}

	view := dashboard.ClosedDayView(row.Totals(), s.engine, row.Start().In(s.loc))
	if err := s.cache.StoreClosedDay(r.Context(), date, view); err != nil {
		log.Warnf("Failed to cache day %s: %v", date, err)
	}
	s.respondJSON(w, view, http.StatusOK)
}

func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	// Send current views immediately if available
	var initial [][]byte
	for _, mode := range []flowgraph.Mode{flowgraph.ModeDaily, flowgraph.ModeRealtime} {
		if view := s.views.get(mode); view != nil {
			if msg := (Envelope{Type: mode, Payload: *view}).Bytes(); msg != nil {
				initial = append(initial, msg)
			}
		}
	}
	s.hub.ServeWS(w, r, initial...)
}

func (s *Server) respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debugf("Failed to write response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, message string, status int) {
	s.respondJSON(w, map[string]string{"error": message}, status)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(route))
		defer timer.ObserveDuration()
		next.ServeHTTP(w, r)
	})
}
