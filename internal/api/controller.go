// Package api exposes dashboards over a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rewired-gh/fishrank/internal/dashboard"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller holds the dependencies of the HTTP handlers
type Controller struct {
	Service *dashboard.Service
	Store   Pinger
	Now     func() time.Time
}

// NewController returns a new controller.
func NewController(service *dashboard.Service, store Pinger) *Controller {
	return &Controller{
		Service: service,
		Store:   store,
		Now:     time.Now,
	}
}

// NewRouter returns a router with every API route registered.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)

	r.HandleFunc("/actors/{actor}/dashboard", c.HandleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/actors/{actor}/leaderboard", c.HandleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/actors/{actor}/comparison", c.HandleComparison).Methods(http.MethodGet)
	r.HandleFunc("/actors/{actor}/trend", c.HandleTrend).Methods(http.MethodGet)

	return r
}

// HandleHealth reports store reachability
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if c.Store != nil {
		if err := c.Store.Ping(ctx); err != nil {
			c.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func (c *Controller) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (c *Controller) writeError(w http.ResponseWriter, statusCode int, message string) {
	c.writeJSON(w, statusCode, map[string]string{"error": message})
}
