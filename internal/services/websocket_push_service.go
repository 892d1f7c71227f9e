package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"quiz-backend/internal/events"
	"quiz-backend/internal/metrics"

	"github.com/gorilla/websocket"
)

// WebSocket Upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Should check in production environment Origin
		return true
	},
}

// Connection information
type Connection struct {
	ID       string          `json:"id"`
	Escrow   string          `json:"escrow"`
	Conn     *websocket.Conn `json:"-"`
	Send     chan []byte     `json:"-"`
	LastPing time.Time       `json:"last_ping"`
}

// Push message base structure
type PushMessage struct {
	Type      string      `json:"type"`
	Contract  string      `json:"contract"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Data      interface{} `json:"data"`
}

// WebSocketPushService fans emitted quiz events out to connected clients.
// Clients may subscribe to one escrow address or to the empty string for
// the full firehose. It implements events.Publisher so it can sit next to
// the NATS publisher in a MultiPublisher.
type WebSocketPushService struct {
	connections map[string]*Connection   // key: connectionID
	escrowConns map[string][]*Connection // key: escrow address ("" = all events)
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewWebSocketPushService creates the push service and starts its hub loop.
func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		escrowConns: make(map[string][]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}

	go service.run()
	return service
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)

		case conn := <-s.unregister:
			s.handleUnregister(conn)

		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// Publish implements events.Publisher. Delivery is queued; a full hub drops
// the message rather than blocking the settlement operation.
func (s *WebSocketPushService) Publish(event events.QuizEvent) {
	message := PushMessage{
		Type:      event.Type,
		Contract:  event.Contract,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		MessageID: event.ID,
		Data:      event.Payload,
	}

	select {
	case s.hub <- message:
	default:
		log.Printf("⚠️ WebSocket hub full, dropping event: %s", event.Type)
	}
}

// Handle connection registration
func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connections[conn.ID] = conn
	s.escrowConns[conn.Escrow] = append(s.escrowConns[conn.Escrow], conn)
	metrics.WebSocketClientsConnected.Set(float64(len(s.connections)))

	log.Printf("📱 WebSocket connection registered: escrow=%q, connID=%s", conn.Escrow, conn.ID)

	confirmMsg := PushMessage{
		Type:      "connection_established",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: generateMessageID(),
		Data: map[string]interface{}{
			"connection_id": conn.ID,
			"escrow":        conn.Escrow,
			"message":       "Real-time quiz event stream established",
		},
	}
	s.sendToConnection(conn, confirmMsg)
}

// Handle connection unregistration
func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.connections[conn.ID]; !exists {
		return
	}
	delete(s.connections, conn.ID)

	if escrowConns, exists := s.escrowConns[conn.Escrow]; exists {
		for i, c := range escrowConns {
			if c.ID == conn.ID {
				s.escrowConns[conn.Escrow] = append(escrowConns[:i], escrowConns[i+1:]...)
				break
			}
		}
		if len(s.escrowConns[conn.Escrow]) == 0 {
			delete(s.escrowConns, conn.Escrow)
		}
	}

	if conn.Send != nil {
		close(conn.Send)
	}
	if conn.Conn != nil {
		conn.Conn.Close()
	}
	metrics.WebSocketClientsConnected.Set(float64(len(s.connections)))

	log.Printf("📱 WebSocket connection unregistered: escrow=%q, connID=%s", conn.Escrow, conn.ID)
}

func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	targets := make([]*Connection, 0)
	targets = append(targets, s.escrowConns[""]...)
	if escrow := escrowFromPayload(message.Data); escrow != "" {
		targets = append(targets, s.escrowConns[escrow]...)
	}
	if len(targets) == 0 {
		return
	}

	sent := 0
	for _, conn := range targets {
		select {
		case conn.Send <- data:
			sent++
		default:
			log.Printf("⚠️ Failed to send to connection: %s (channel full or closed)", conn.ID)
		}
	}

	metrics.WebSocketMessagesPushed.WithLabelValues(message.Type).Add(float64(sent))
}

// escrowFromPayload extracts the escrow address a payload concerns, if any.
func escrowFromPayload(data interface{}) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	var fields struct {
		EscrowAddress string `json:"escrow_address"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	return fields.EscrowAddress
}

func (s *WebSocketPushService) sendToConnection(conn *Connection, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	select {
	case conn.Send <- data:
	default:
		log.Printf("⚠️ Failed to send to connection: %s", conn.ID)
	}
}

// HandleWebSocket upgrades the request and attaches the client to the event
// stream. escrow filters delivery to one quiz; empty means all events.
func (s *WebSocketPushService) HandleWebSocket(w http.ResponseWriter, r *http.Request, escrow string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	connection := &Connection{
		ID:       generateConnectionID(),
		Escrow:   escrow,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		LastPing: time.Now(),
	}

	s.register <- connection

	go s.handleConnectionWrite(connection)
	go s.handleConnectionRead(connection)
}

func (s *WebSocketPushService) handleConnectionWrite(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write message failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketPushService) handleConnectionRead(conn *Connection) {
	defer func() {
		s.unregister <- conn
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.LastPing = time.Now()
		return nil
	})

	for {
		_, _, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}
	}
}

// GetActiveConnections returns the number of attached clients.
func (s *WebSocketPushService) GetActiveConnections() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}

// GetEscrowConnections returns the number of clients subscribed to one escrow.
func (s *WebSocketPushService) GetEscrowConnections(escrow string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.escrowConns[escrow])
}

func generateConnectionID() string {
	return fmt.Sprintf("conn_%d", time.Now().UnixNano())
}

func generateMessageID() string {
	return fmt.Sprintf("msg_%d", time.Now().UnixNano())
}
