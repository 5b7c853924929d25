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

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleEventStream upgrades the connection and forwards every fleet
// change to the client until it disconnects. Each message is a complete
// fleet view; a client that falls behind receives the newest view, not
// every intermediate one.
func (s *APIServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(*http.Request) bool {
			// CORS for the event stream mirrors CommonMiddleware.
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")
		return
	}

	defer func() {
		s.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("Closing WebSocket connection")
		conn.Close()
	}()

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Fleet event stream connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	views, unsubscribe := s.registry.Subscribe()
	defer unsubscribe()

	go s.watchClientClose(conn, cancel)

	// Seed the client with the current state before streaming deltas.
	initial := s.registry.Snapshot(ctx, s.resolve)
	if err := s.writeView(conn, initial); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send initial fleet view")
		return
	}

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-views:
			if !ok {
				return
			}

			if err := s.writeView(conn, view); err != nil {
				s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to stream fleet view")
				return
			}
		case <-pings.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (s *APIServer) writeView(conn *websocket.Conn, view interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(view)
}

// watchClientClose drains client frames so close and pong handling work,
// and cancels the stream when the peer goes away.
func (s *APIServer) watchClientClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}

			return
		}
	}
}
