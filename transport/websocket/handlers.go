package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/playsquare/gameroom-backend/internal/apperror"
)

func (that *Server) handleJoin(c *client, msg *Message) error {
	log := that.logger.With("method", "handleJoin", "connID", c.id)

	var payload joinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.Room.ID == "" || payload.Player.ID == "" {
		log.Debug("join without room or player id")
		return that.sendError(c, msg.Action, "room and player ids are required")
	}

	lock := that.roomLock(payload.Room.ID)
	lock.Lock()
	defer lock.Unlock()

	result, err := that.rooms.Join(payload.Room.ID, payload.Player.ID, c.id)
	if err != nil {
		log.Error("failed to join room", "roomID", payload.Room.ID, "error", err)
		return that.sendError(c, msg.Action, "failed to join room")
	}

	that.bind(c, payload.Room.ID, payload.Player.ID)

	if err = c.send(actionRoomJoined, joinedPayload{Player: result.Assignment}); err != nil {
		return fmt.Errorf("failed to send assignment: %w", err)
	}

	that.broadcastState(payload.Room.ID, result.State)

	log.Info("player joined room", "roomID", payload.Room.ID, "identity", payload.Player.ID)

	return nil
}

func (that *Server) handleTurn(c *client, msg *Message) error {
	log := that.logger.With("method", "handleTurn", "connID", c.id)

	if c.roomID == "" {
		return that.sendError(c, msg.Action, "join a room first")
	}

	var payload turnPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.Cell == nil {
		return that.sendError(c, msg.Action, "cell is required")
	}

	lock := that.roomLock(c.roomID)
	lock.Lock()
	defer lock.Unlock()

	state, err := that.rooms.Move(c.roomID, c.identity, *payload.Cell)
	if apperror.IsRejection(err) {
		log.Debug("turn rejected", "roomID", c.roomID, "identity", c.identity, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to make turn: %w", err)
	}

	that.broadcastState(c.roomID, state)

	log.Info("player made a turn", "roomID", c.roomID, "identity", c.identity)

	return nil
}

func (that *Server) handleReset(c *client, msg *Message) error {
	log := that.logger.With("method", "handleReset", "connID", c.id)

	if c.roomID == "" {
		return that.sendError(c, msg.Action, "join a room first")
	}

	lock := that.roomLock(c.roomID)
	lock.Lock()
	defer lock.Unlock()

	result, err := that.rooms.Reset(c.roomID, c.identity)
	if apperror.IsRejection(err) {
		log.Debug("reset rejected", "roomID", c.roomID, "identity", c.identity, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reset game: %w", err)
	}

	that.broadcastState(c.roomID, result.State)
	// reset can rotate marks, so every participant gets its seat again
	that.sendAssignments(c.roomID, result.Assignments)

	log.Info("game reset", "roomID", c.roomID, "identity", c.identity)

	return nil
}

func (that *Server) handleLeave(c *client, msg *Message) error {
	log := that.logger.With("method", "handleLeave", "connID", c.id)

	if c.roomID == "" {
		return that.sendError(c, msg.Action, "join a room first")
	}

	roomID, identity := c.roomID, c.identity

	lock := that.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	result, err := that.rooms.Leave(roomID, identity)
	if apperror.IsRejection(err) {
		log.Debug("leave rejected", "roomID", roomID, "identity", identity, "error", err)
		that.unbind(c)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	that.unbind(c)

	if result.Destroyed {
		that.dropRoomLock(roomID)
		log.Info("room destroyed", "roomID", roomID)
		return nil
	}

	that.broadcastState(roomID, result.State)
	// the admin may have changed hands
	that.sendAssignments(roomID, result.Assignments)

	log.Info("player left room", "roomID", roomID, "identity", identity)

	return nil
}

func (that *Server) handleCheat(c *client, msg *Message) error {
	log := that.logger.With("method", "handleCheat", "connID", c.id)

	if c.roomID == "" {
		return that.sendError(c, msg.Action, "join a room first")
	}

	var payload cheatPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	lock := that.roomLock(c.roomID)
	lock.Lock()
	defer lock.Unlock()

	state, err := that.rooms.Cheat(c.roomID, c.identity, payload.Action, payload.Mark)
	if apperror.IsRejection(err) {
		log.Debug("cheat rejected", "roomID", c.roomID, "identity", c.identity, "action", payload.Action, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply cheat: %w", err)
	}

	that.broadcastState(c.roomID, state)

	log.Info("cheat applied", "roomID", c.roomID, "identity", c.identity, "action", payload.Action)

	return nil
}
