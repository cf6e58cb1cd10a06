// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/inertial_tracker/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	wsWriteWait  = 5 * time.Second
	wsClientBuf  = 32
	maxControlSz = 4096
)

// webServer serves the latest tracker output over HTTP and streams new
// outputs to websocket clients.
type webServer struct {
	sendControl func(Command) error
	staticDir   string

	mu           sync.RWMutex
	lastPosition []byte
	lastStatus   []byte

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWebServer(staticDir string, sendControl func(Command) error) *webServer {
	return &webServer{
		sendControl: sendControl,
		staticDir:   staticDir,
		clients:     make(map[*wsClient]struct{}),
	}
}

func (s *webServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/position", s.handleLatest(func() []byte { return s.lastPosition }))
	mux.HandleFunc("/api/status", s.handleLatest(func() []byte { return s.lastStatus }))
	mux.HandleFunc("/api/control", s.handleControl)
	mux.HandleFunc("/ws/position", s.handlePositionWS)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

// updatePosition stores a position payload and fans it out to stream clients.
func (s *webServer) updatePosition(payload []byte) {
	s.mu.Lock()
	s.lastPosition = payload
	s.mu.Unlock()
	s.broadcast(payload)
}

func (s *webServer) updateStatus(payload []byte) {
	s.mu.Lock()
	s.lastStatus = payload
	s.mu.Unlock()
}

func (s *webServer) handleLatest(get func() []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.RLock()
		payload := get()
		s.mu.RUnlock()

		if payload == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(payload); err != nil {
			log.Printf("web: write error: %v", err)
		}
	}
}

func (s *webServer) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxControlSz))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd, err := DecodeCommand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.sendControl(cmd); err != nil {
		log.Printf("web: control forward error: %v", err)
		http.Error(w, "control unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(cmd); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *webServer) handlePositionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsClientBuf)}
	s.mu.RLock()
	if s.lastPosition != nil {
		c.send <- s.lastPosition
	}
	s.mu.RUnlock()

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	go s.writeLoop(c)

	// Incoming frames are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			break
		}
	}
	s.removeClient(c)
}

func (s *webServer) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("web: websocket write error: %v", err)
			s.removeClient(c)
			return
		}
	}
}

func (s *webServer) removeClient(c *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// broadcast drops the payload for clients whose buffer is full.
func (s *webServer) broadcast(payload []byte) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (s *webServer) clientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// RunWeb serves the tracker output over HTTP and websocket and forwards
// control commands to the tracker.
func RunWeb() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	srv := newWebServer(cfg.Web.StaticDir, func(cmd Command) error {
		return publishJSON(client, cfg.MQTT.TopicControl, false, cmd)
	})

	if err := subscribe(client, cfg.MQTT.TopicPosition, func(_ mqtt.Client, msg mqtt.Message) {
		if !json.Valid(msg.Payload()) {
			log.Printf("web: ignoring invalid position payload")
			return
		}
		srv.updatePosition(msg.Payload())
	}); err != nil {
		return err
	}
	if err := subscribe(client, cfg.MQTT.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		srv.updateStatus(msg.Payload())
	}); err != nil {
		return err
	}

	log.Printf("web server listening on %s", cfg.Web.Addr)
	return http.ListenAndServe(cfg.Web.Addr, srv.handler())
}
