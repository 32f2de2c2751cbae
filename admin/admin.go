// Package admin runs the operational sidecar: health, route and
// function introspection, Prometheus metrics, catalog reload, and a
// live request-log stream over websocket.
package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pico/config"
	"pico/server"
)

// Catalog is the slice of the function catalog the admin surface
// needs.
type Catalog interface {
	Size() int
	Names() []string
	Reload() error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Admin binds loopback or a trusted interface.
		return true
	},
}

// New builds the admin HTTP server. It shares nothing with the data
// path beyond the hub and the catalog.
func New(addr string, cfg *config.Config, cat Catalog, hub *server.Hub, registry *prometheus.Registry) *http.Server {
	started := time.Now()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"status":    "ok",
			"uptime":    time.Since(started).String(),
			"routes":    len(cfg.Routes),
			"functions": cat.Size(),
		})
	})

	r.Get("/routes", func(w http.ResponseWriter, req *http.Request) {
		type routeInfo struct {
			Path     string   `json:"path"`
			Methods  []string `json:"methods"`
			RouteKey string   `json:"route_key"`
		}
		var routes []routeInfo
		for key, rt := range cfg.Routes {
			info := routeInfo{Path: rt.Path, RouteKey: key}
			for method := range rt.Definitions {
				info.Methods = append(info.Methods, string(method))
			}
			routes = append(routes, info)
		}
		writeJSON(w, map[string]any{
			"routes":    routes,
			"functions": cat.Names(),
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Post("/reload", func(w http.ResponseWriter, req *http.Request) {
		if err := cat.Reload(); err != nil {
			log.Printf("[admin] reload failed: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"status":    "reloaded",
			"functions": cat.Size(),
		})
	})

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Printf("[admin] ws upgrade error: %v", err)
			return
		}
		defer conn.Close()

		client := hub.Subscribe()
		defer hub.Unsubscribe(client)

		done := make(chan struct{})

		// writer goroutine
		go func() {
			defer close(done)
			for entry := range client.Send {
				if err := conn.WriteJSON(entry); err != nil {
					log.Printf("[admin] ws write error: %v", err)
					return
				}
			}
		}()

		// reader loop only detects disconnects; incoming frames are
		// dropped
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					return
				}
				log.Printf("[admin] ws read error: %v", err)
				return
			}
		}
	})

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[admin] response encode error: %v", err)
	}
}
