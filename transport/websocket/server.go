package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/playsquare/gameroom-backend/internal/room"
)

type roomManager interface {
	Join(roomID, identity, connID string) (*room.JoinResult, error)
	Move(roomID, identity string, cell int) (*room.Snapshot, error)
	Reset(roomID, identity string) (*room.ResetResult, error)
	Cheat(roomID, identity, action, mark string) (*room.Snapshot, error)
	Leave(roomID, identity string) (*room.LeaveResult, error)
	DropConnection(roomID, identity, connID string)
}

// client is one websocket connection. Its room and identity binding is set
// on room:join and touched only by the connection's own read loop.
type client struct {
	id   string
	conn *websocket.Conn

	// gorilla allows a single concurrent writer per connection
	writeMu sync.Mutex

	identity string
	roomID   string
}

func (that *client) send(action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

type Server struct {
	logger *slog.Logger
	rooms  roomManager

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client            // connection ID -> client
	members map[string]map[string]*client // room ID -> connection ID -> client

	// opMu extends each room's serialization past the state transition to
	// cover its broadcast: the next same-room operation cannot start
	// writing before every receiver has the previous snapshot.
	opMu map[string]*sync.Mutex

	handlers map[string]func(c *client, msg *Message) error
}

func New(logger *slog.Logger, rooms roomManager, allowedOrigins []string) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		rooms:  rooms,

		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},

		clients: make(map[string]*client),
		members: make(map[string]map[string]*client),
		opMu:    make(map[string]*sync.Mutex),

		handlers: make(map[string]func(*client, *Message) error),
	}

	server.handlers[actionRoomJoin] = server.handleJoin
	server.handlers[actionGameTurn] = server.handleTurn
	server.handlers[actionGameReset] = server.handleReset
	server.handlers[actionRoomLeave] = server.handleLeave
	server.handlers[actionGameCheat] = server.handleCheat

	return server
}

// originChecker allows every origin when the list is empty (dev mode) and
// an exact match otherwise.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}

		origin := req.Header.Get("Origin")
		for _, candidate := range allowed {
			if origin == candidate {
				return true
			}
		}

		return false
	}
}

// Start - starts the WebSocket server and serves /ws until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - upgrades the connection and runs its read loop.
func (that *Server) serveWS(w http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connected := &client{id: uuid.NewString(), conn: conn}

	that.mu.Lock()
	that.clients[connected.id] = connected
	that.mu.Unlock()

	log.Info("WebSocket connection established", "connID", connected.id)

	that.readLoop(connected)
}

// readLoop - processes messages from the client until the connection drops.
func (that *Server) readLoop(c *client) {
	log := that.logger.With("method", "readLoop", "connID", c.id)

	defer that.disconnect(c)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		handler, ok := that.handlers[msg.Action]
		if !ok {
			log.Debug("unknown action", "action", msg.Action)
			continue
		}

		if err := handler(c, &msg); err != nil {
			log.Error("error processing message", "action", msg.Action, "error", err)
		}
	}
}

// disconnect drops the transport binding. The participant keeps its seat,
// admin role and score until an explicit room:leave; a disconnect is not a
// leave.
func (that *Server) disconnect(c *client) {
	log := that.logger.With("method", "disconnect", "connID", c.id)

	that.mu.Lock()
	delete(that.clients, c.id)
	that.dropMembershipLocked(c)
	that.mu.Unlock()

	if c.roomID != "" {
		that.rooms.DropConnection(c.roomID, c.identity, c.id)
	}

	_ = c.conn.Close()

	log.Info("connection closed")
}

// bind attaches the connection to its room and identity. A repeated join
// from the same connection moves the membership.
func (that *Server) bind(c *client, roomID, identity string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if c.roomID != "" && c.roomID != roomID {
		that.dropMembershipLocked(c)
	}

	if _, ok := that.members[roomID]; !ok {
		that.members[roomID] = make(map[string]*client)
	}
	that.members[roomID][c.id] = c

	c.roomID = roomID
	c.identity = identity
}

// unbind detaches the connection from its room after an explicit leave.
func (that *Server) unbind(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.dropMembershipLocked(c)
	c.roomID = ""
	c.identity = ""
}

func (that *Server) dropMembershipLocked(c *client) {
	if c.roomID == "" {
		return
	}

	if conns, ok := that.members[c.roomID]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(that.members, c.roomID)
		}
	}
}

// roomLock returns the operation lock for roomID, creating it on first
// use. Callers hold it for the full transition-plus-broadcast cycle.
func (that *Server) roomLock(roomID string) *sync.Mutex {
	that.mu.Lock()
	defer that.mu.Unlock()

	lock, ok := that.opMu[roomID]
	if !ok {
		lock = &sync.Mutex{}
		that.opMu[roomID] = lock
	}

	return lock
}

// dropRoomLock forgets a destroyed room's operation lock. A later join to
// the same ID starts over with a fresh room and a fresh lock.
func (that *Server) dropRoomLock(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.opMu, roomID)
}

// broadcastState fans the room-wide view out to every connection currently
// joined to the room.
func (that *Server) broadcastState(roomID string, state *room.Snapshot) {
	log := that.logger.With("method", "broadcastState", "roomID", roomID)

	that.mu.RLock()
	conns := make([]*client, 0, len(that.members[roomID]))
	for _, c := range that.members[roomID] {
		conns = append(conns, c)
	}
	that.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(actionRoomState, state); err != nil {
			log.Error("failed to send state", "connID", c.id, "error", err)
		}
	}
}

// sendAssignments re-sends each participant its private seat view, used
// after operations that can change marks or the admin.
func (that *Server) sendAssignments(roomID string, assignments []room.Assignment) {
	log := that.logger.With("method", "sendAssignments", "roomID", roomID)

	for _, assignment := range assignments {
		if assignment.ConnID == "" {
			continue
		}

		that.mu.RLock()
		c, ok := that.clients[assignment.ConnID]
		that.mu.RUnlock()

		if !ok {
			log.Debug("connection not found for participant", "identity", assignment.ID)
			continue
		}

		if err := c.send(actionRoomJoined, joinedPayload{Player: assignment}); err != nil {
			log.Error("failed to send assignment", "identity", assignment.ID, "error", err)
		}
	}
}

func (that *Server) sendError(c *client, action, errorMsg string) error {
	if err := c.send(action, errorPayload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
