/*
Copyright (C) 2026  vbase contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package statussrv is the read-only introspection endpoint (spec.md
// §4.O): a websocket that streams a JSON frame every time the core's
// last published LSN advances. Grounded on the teacher's
// scm/network.go websocket upgrade handler, generalized from a
// Scheme-callback pair into a broadcaster with one send channel per
// connected client.
package statussrv

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// EngineStatus is one engine's line in a Frame.
type EngineStatus struct {
	Name    string `json:"name"`
	Buckets int    `json:"buckets"`
}

// Frame is one newline-delimited JSON object pushed to every connected
// observer (spec.md §6).
type Frame struct {
	LastLSN uint64         `json:"last_lsn"`
	Engines []EngineStatus `json:"engines"`
}

// EngineSource reports the current engine/bucket counts at the moment a
// Frame is built. The core supplies this as a closure over its registry;
// statussrv never touches engine internals itself.
type EngineSource func() []EngineStatus

type client struct {
	ws   *websocket.Conn
	send chan Frame
}

// Server pushes a Frame to every connected websocket client whenever
// Notify is called. Notify never blocks on a slow or stalled client: a
// client whose send buffer is full simply misses that frame.
type Server struct {
	upgrader websocket.Upgrader
	engines  EngineSource

	mu      sync.Mutex
	clients map[*client]struct{}

	httpSrv *http.Server
}

// New creates a Server that reports engine status via engines.
func New(engines EngineSource) *Server {
	return &Server{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(*http.Request) bool { return true }},
		engines:  engines,
		clients:  map[*client]struct{}{},
	}
}

// Start begins serving ws://addr/status in the background. It returns
// once the listener is bound; serving happens on its own goroutine.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.httpSrv = &http.Server{Handler: mux}
	go s.httpSrv.Serve(ln)
	return nil
}

// Close stops accepting new observers and disconnects existing ones. A
// Server that was never Start-ed closes cleanly.
func (s *Server) Close() error {
	if s.httpSrv == nil {
		return nil
	}
	err := s.httpSrv.Close()
	// http.Server.Close does not touch hijacked (websocket) connections.
	s.mu.Lock()
	for c := range s.clients {
		c.ws.Close()
	}
	s.mu.Unlock()
	return err
}

// Notify broadcasts a Frame carrying lastLSN and the current engine
// status to every connected client. Called by the core after a write's
// pipeline commit, outside the journal lock.
func (s *Server) Notify(lastLSN uint64) {
	frame := Frame{LastLSN: lastLSN, Engines: s.engines()}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
			// slow client: drop this frame rather than block the
			// broadcaster or the writer that triggered it.
		}
	}
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{ws: ws, send: make(chan Frame, 8)}
	s.addClient(c)
	go s.writeLoop(c)
	go s.readLoop(c)
}

// readLoop's only job is to notice the client hung up; the status
// protocol is push-only so any inbound message is ignored.
func (s *Server) readLoop(c *client) {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			close(c.send)
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer func() {
		s.removeClient(c)
		c.ws.Close()
	}()
	for frame := range c.send {
		data, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		data = append(data, '\n')
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
