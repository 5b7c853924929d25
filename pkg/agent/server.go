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

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	serverReadHeaderTimeout = 10 * time.Second
	serverShutdownTimeout   = 5 * time.Second
)

// Server exposes the agent's command endpoint for direct delivery from
// the fleet server.
type Server struct {
	listenAddr string
	handler    *CommandHandler
	logger     logger.Logger
}

// NewServer creates the agent-side HTTP surface.
func NewServer(listenAddr string, handler *CommandHandler, log logger.Logger) *Server {
	return &Server{
		listenAddr: listenAddr,
		handler:    handler,
		logger:     log,
	}
}

// Start serves the command endpoint until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.listenAddr).Msg("Agent command endpoint listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

// Router builds the agent's HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)

	return r
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd models.Command

	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		s.logger.Warn().Err(err).Msg("Rejecting malformed command")
		http.Error(w, "malformed command", http.StatusBadRequest)

		return
	}

	if err := cmd.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("Rejecting invalid command")
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	response, err := s.handler.Handle(r.Context(), cmd)
	if err != nil {
		s.logger.Error().Err(err).Str("command", cmd.Type.String()).Msg("Command execution failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	if response != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(response))

		return
	}

	w.WriteHeader(http.StatusAccepted)
}
