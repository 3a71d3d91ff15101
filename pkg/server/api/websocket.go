package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrathCole/oracle-push/pkg/feeder/round"
	"github.com/StrathCole/oracle-push/pkg/logging"
)

// WebSocketServer streams every round result to connected clients.
type WebSocketServer struct {
	addr     string
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*WebSocketClient]bool

	updates chan *round.Result

	ctx    context.Context
	cancel context.CancelFunc
}

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	conn            *websocket.Conn
	send            chan []byte
	server          *WebSocketServer
	subscribedAll   bool
	subscribedPairs map[string]bool
	mu              sync.RWMutex
}

// WebSocketMessage represents a client message.
type WebSocketMessage struct {
	Type    string   `json:"type"`    // "subscribe", "unsubscribe", "ping"
	Symbols []string `json:"symbols"` // pair names such as "BTC/USD"
}

// RoundMessage is sent to clients after each round.
type RoundMessage struct {
	Type      string       `json:"type"` // "round_result"
	Timestamp string       `json:"timestamp"`
	Summary   RoundSummary `json:"summary"`
	Feeds     []FeedView   `json:"feeds"`
}

// NewWebSocketServer creates a new WebSocket server.
func NewWebSocketServer(addr string, logger *logging.Logger) *WebSocketServer {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketServer{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*WebSocketClient]bool),
		updates: make(chan *round.Result, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler returns the /ws route. The broadcast loop must be running, see Run.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run broadcasts queued results until Stop is called.
func (s *WebSocketServer) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.closeClients()
			return
		case res := <-s.updates:
			s.broadcast(res)
		}
	}
}

// Start serves /ws on the configured address and blocks until Stop.
func (s *WebSocketServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.Run()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server error", "error", err)
		}
	}()

	<-s.ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Stop stops the WebSocket server.
func (s *WebSocketServer) Stop() {
	s.cancel()
}

// SendResult queues a round result for broadcast. It never blocks the
// round; results are dropped when the queue is full.
func (s *WebSocketServer) SendResult(res *round.Result) {
	if res == nil {
		return
	}
	select {
	case s.updates <- res:
	default:
		s.logger.Warn("Update channel full, dropping round result", "round", res.Round)
	}
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &WebSocketClient{
		conn:            conn,
		send:            make(chan []byte, 64),
		server:          s,
		subscribedAll:   true,
		subscribedPairs: make(map[string]bool),
	}

	s.registerClient(client)

	go client.writePump()
	go client.readPump()

	s.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr().String())
}

func (s *WebSocketServer) registerClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *WebSocketServer) unregisterClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

func (s *WebSocketServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		delete(s.clients, client)
		close(client.send)
	}
}

// broadcast sends a round message to every subscribed client. Feeds are
// filtered per client subscription.
func (s *WebSocketServer) broadcast(res *round.Result) {
	summary := summarize(res)
	feeds := feedViews(res)
	timestamp := time.Now().UTC().Format(time.RFC3339)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		filtered, ok := client.filter(feeds)
		if !ok {
			continue
		}
		data, err := json.Marshal(RoundMessage{
			Type:      "round_result",
			Timestamp: timestamp,
			Summary:   summary,
			Feeds:     filtered,
		})
		if err != nil {
			s.logger.Error("Failed to marshal round result", "error", err)
			return
		}
		select {
		case client.send <- data:
		default:
			s.logger.Warn("Client send buffer full, skipping update")
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subscribe(msg.Symbols)
	case "unsubscribe":
		c.unsubscribe(msg.Symbols)
	case "ping":
		c.sendPong()
	default:
		c.server.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

// subscribe narrows the client to symbols; "*" or no symbols means all.
func (c *WebSocketClient) subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 || (len(symbols) == 1 && symbols[0] == "*") {
		c.subscribedAll = true
		c.subscribedPairs = make(map[string]bool)
	} else {
		c.subscribedAll = false
		for _, symbol := range symbols {
			c.subscribedPairs[symbol] = true
		}
	}

	c.server.logger.Debug("Client subscribed", "symbols", symbols)
}

func (c *WebSocketClient) unsubscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 || (len(symbols) == 1 && symbols[0] == "*") {
		c.subscribedAll = false
		c.subscribedPairs = make(map[string]bool)
	} else {
		for _, symbol := range symbols {
			delete(c.subscribedPairs, symbol)
		}
	}

	c.server.logger.Debug("Client unsubscribed", "symbols", symbols)
}

// filter returns the feeds the client subscribed to and whether the client
// should receive the message at all.
func (c *WebSocketClient) filter(feeds []FeedView) ([]FeedView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subscribedAll {
		return feeds, true
	}

	out := make([]FeedView, 0, len(c.subscribedPairs))
	for _, f := range feeds {
		if c.subscribedPairs[f.Name] {
			out = append(out, f)
		}
	}
	return out, len(out) > 0
}

func (c *WebSocketClient) sendPong() {
	data, _ := json.Marshal(map[string]string{"type": "pong"})
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if _, ok := c.server.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
