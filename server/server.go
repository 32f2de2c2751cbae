// Package server accepts raw TCP connections, frames HTTP/1.1
// requests off them, and runs each through the handler pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"pico/metrics"
	"pico/route"
	"pico/session"
	"pico/wire"
)

// Config wires the server's collaborators together.
type Config struct {
	Routes  map[string]*route.Route
	Tree    *route.Tree
	Catalog FunctionCatalog
	Codec   *session.Codec
	Metrics *metrics.Metrics
	Hub     *Hub

	PublicDir   string
	HeaderLimit int
	BodyTimeout time.Duration
}

type Server struct {
	routes  map[string]*route.Route
	tree    *route.Tree
	catalog FunctionCatalog
	codec   *session.Codec
	metrics *metrics.Metrics
	hub     *Hub

	publicDir   string
	headerLimit int
	bodyTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
}

func New(cfg Config) *Server {
	return &Server{
		routes:      cfg.Routes,
		tree:        cfg.Tree,
		catalog:     cfg.Catalog,
		codec:       cfg.Codec,
		metrics:     cfg.Metrics,
		hub:         cfg.Hub,
		publicDir:   cfg.PublicDir,
		headerLimit: cfg.HeaderLimit,
		bodyTimeout: cfg.BodyTimeout,
	}
}

// RequestLog is the structured record emitted per handled request,
// both to the log and to hub subscribers.
type RequestLog struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Route     string `json:"route,omitempty"`
	Status    int    `json:"status"`
	Duration  string `json:"duration"`
}

// ListenAndServe accepts connections until Shutdown closes the
// listener. Each connection is handled on its own goroutine.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("[server] listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("[server] accept error: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// Shutdown closes the listener; in-flight connections finish on their
// own goroutines.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[server] panic handling connection from %s: %v", conn.RemoteAddr(), r)
			conn.Write(wire.ErrorResponse(
				wire.NewError(wire.StatusInternalError, "internal server error")).Bytes())
		}
	}()

	req, werr := wire.ReadRequest(conn, s.headerLimit, s.bodyTimeout)
	if werr != nil {
		conn.Write(wire.ErrorResponse(werr).Bytes())
		return
	}

	start := s.metrics.Start()
	resp, routeKey := s.Handle(context.Background(), req)
	s.metrics.End(start, string(req.Method), routeKey, int(resp.Status))

	entry := RequestLog{
		RequestID: req.ID,
		Method:    string(req.Method),
		Path:      req.Path,
		Route:     routeKey,
		Status:    int(resp.Status),
		Duration:  time.Since(start).String(),
	}
	if line, err := json.Marshal(entry); err == nil {
		log.Printf("[request] %s", line)
	}
	if s.hub != nil {
		s.hub.Broadcast(entry)
	}

	if _, err := conn.Write(resp.Bytes()); err != nil {
		log.Printf("[server] write error for request %s: %v", req.ID, err)
	}
}
