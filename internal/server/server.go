// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

// Package server wires the sync API onto an HTTP mux.
package server

import (
	"log/slog"
	"net/http"

	"github.com/Ayushhgupta39/seabuddy/seasync"
)

// Server represents the HTTP server for the sync API
type Server struct {
	service *seasync.SyncService
	auth    *seasync.JWTAuth
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a new server instance. maxBodyBytes caps sync request
// bodies (0 = default).
func New(service *seasync.SyncService, jwtAuth *seasync.JWTAuth, logger *slog.Logger, maxBodyBytes int64) *Server {
	server := &Server{
		service: service,
		auth:    jwtAuth,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	server.setupRoutes(maxBodyBytes)
	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(maxBodyBytes int64) {
	syncHandlers := seasync.NewHTTPSyncHandlers(s.service, s.auth, s.logger, maxBodyBytes)

	syncHandler := s.auth.Middleware(http.HandlerFunc(syncHandlers.HandleSync))
	statusHandler := s.auth.Middleware(http.HandlerFunc(syncHandlers.HandleStatus))
	s.mux.Handle("POST /api/sync", syncHandler)
	s.mux.Handle("GET /api/sync/status", statusHandler)

	// Health check endpoint (no auth required)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
