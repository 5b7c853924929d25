/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api is the fleet server's HTTP and websocket boundary.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carverauto/fleetradar/pkg/command"
	"github.com/carverauto/fleetradar/pkg/fleet"
	srHttp "github.com/carverauto/fleetradar/pkg/http"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config configures the HTTP boundary.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	APIKey     string `json:"api_key,omitempty"`
}

// APIServer serves telemetry ingress, fleet reads, operator commands and
// the fleet event stream.
type APIServer struct {
	config   Config
	registry *fleet.Registry
	commands *command.Router
	resolve  fleet.UpdateCheckFunc
	router   *mux.Router
	logger   logger.Logger
}

// NewAPIServer creates the API server. resolve backs the update flags on
// fleet reads.
func NewAPIServer(cfg Config, registry *fleet.Registry, commands *command.Router, resolve fleet.UpdateCheckFunc, log logger.Logger) *APIServer {
	s := &APIServer{
		config:   cfg,
		registry: registry,
		commands: commands,
		resolve:  resolve,
		router:   mux.NewRouter(),
		logger:   log,
	}

	s.setupRoutes()

	return s
}

func (s *APIServer) setupRoutes() {
	s.router.Use(srHttp.CommonMiddleware(s.logger))

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/fleet", s.handleFleet).Methods(http.MethodGet)
	s.router.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodPost)
	s.router.HandleFunc("/myip", s.handleMyIP).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleEventStream).Methods(http.MethodGet)

	// Commands are the one operator-initiated mutation; they sit behind
	// the API key when one is configured.
	s.router.Handle("/command",
		srHttp.APIKeyMiddleware(s.config.APIKey, s.logger)(http.HandlerFunc(s.handleCommand))).
		Methods(http.MethodPost)
}

// Router exposes the handler for tests.
func (s *APIServer) Router() *mux.Router {
	return s.router
}

// Start serves until the context is cancelled, then drains connections.
func (s *APIServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Fleet API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

func (s *APIServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.registry.IsEmpty() {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("No device registered"))

		return
	}

	s.handleFleet(w, r)
}

func (s *APIServer) handleFleet(w http.ResponseWriter, r *http.Request) {
	view := s.registry.Snapshot(r.Context(), s.resolve)
	s.writeJSON(w, http.StatusOK, view)
}

func (s *APIServer) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var telemetry models.DeviceTelemetry

	if err := json.NewDecoder(r.Body).Decode(&telemetry); err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejecting malformed telemetry")
		http.Error(w, "malformed telemetry", http.StatusBadRequest)

		return
	}

	if err := telemetry.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejecting invalid telemetry")
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	s.registry.IngestTelemetry(telemetry, remoteHost(r.RemoteAddr))
	w.WriteHeader(http.StatusAccepted)
}

// commandRequest is the operator-facing command envelope: the target
// device plus the command payload.
type commandRequest struct {
	DeviceID      string             `json:"id"`
	Type          models.CommandType `json:"type"`
	ContainerName string             `json:"container_name,omitempty"`
	Content       string             `json:"content,omitempty"`
}

func (s *APIServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed command", http.StatusBadRequest)
		return
	}

	if req.DeviceID == "" {
		http.Error(w, "command requires a device id", http.StatusBadRequest)
		return
	}

	cmd := models.Command{
		ID:            uuid.New(),
		Type:          req.Type,
		ContainerName: req.ContainerName,
		Content:       req.Content,
	}

	if err := cmd.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch s.commands.Dispatch(r.Context(), req.DeviceID, cmd) {
	case command.OutcomeDelivered:
		w.WriteHeader(http.StatusAccepted)
	case command.OutcomeDeviceUnknown:
		http.Error(w, "unknown device", http.StatusNotFound)
	case command.OutcomeDeliveryFailed:
		http.Error(w, "delivery failed", http.StatusBadGateway)
	}
}

func (s *APIServer) handleMyIP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(remoteHost(r.RemoteAddr)))
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}
