package signaling

import (
	"context"
	"encoding/json"

	"codepair/pkg/protocol"
	"codepair/pkg/registry"
)

func (h *Hub) handleInbound(c *client, env protocol.Envelope) {
	switch env.Type {
	case protocol.EventJoin:
		h.handleJoin(c, env.Payload)
	case protocol.EventCallRequest:
		h.handleCallRequest(c, env.Payload)
	case protocol.EventCallAccept:
		h.handleCallAccept(c, env.Payload)
	case protocol.EventRenegotiationRequest:
		h.handleRenegotiation(c, env.Type, env.Payload)
	case protocol.EventRenegotiationAnswer:
		h.handleRenegotiation(c, env.Type, env.Payload)
	case protocol.EventVideoToggle, protocol.EventAudioToggle:
		h.handleToggle(c, env.Type, env.Payload)
	case protocol.EventCodeBroadcast, protocol.EventLanguageBroadcast,
		protocol.EventOutputBroadcast, protocol.EventWhiteboardUpdate,
		protocol.EventWhiteboardClear:
		h.handleRoomRelay(c, env.Type, env.Payload)
	case protocol.EventSyncToConnection:
		h.handleSync(c, env.Payload)
	case protocol.EventLeave:
		h.handleLeave(c)
	default:
		h.logger.Printf("unknown event type from %s: %s", c.id, env.Type)
	}
}

func (h *Hub) handleJoin(c *client, payload json.RawMessage) {
	var join protocol.JoinPayload
	if err := json.Unmarshal(payload, &join); err != nil || join.Room == "" {
		h.logger.Printf("bad join from %s: %v", c.id, err)
		return
	}

	ctx := c.ctx

	// Existing members are captured before registration so the arrival
	// notice reaches only pre-existing participants.
	current, err := h.reg.Members(ctx, join.Room)
	if err != nil {
		h.logger.Printf("members of %s: %v", join.Room, err)
	}
	others := current[:0:0]
	for _, m := range current {
		if m.PeerID != c.id {
			others = append(others, m)
		}
	}

	if err := h.reg.Register(ctx, join.Room, c.id, join.Identity); err != nil {
		h.logger.Printf("register %s in %s: %v", c.id, join.Room, err)
		return
	}
	h.logger.Printf("ws: %s joined %s as %q (members=%d)", c.id, join.Room, join.Identity, len(others)+1)

	c.sendJSON(protocol.JoinedMessage{
		Type:     protocol.EventJoined,
		Identity: join.Identity,
		Room:     join.Room,
		PeerID:   c.id,
	})

	if len(others) == 0 {
		return
	}

	arrival := protocol.ParticipantJoinedMessage{
		Type:     protocol.EventParticipantJoined,
		Identity: join.Identity,
		PeerID:   c.id,
		Room:     join.Room,
	}
	for _, m := range others {
		h.sendTo(m.PeerID, arrival)
	}

	// Admission itself is a client-side dialog; the server only tells the
	// joiner that someone must admit it.
	c.sendJSON(protocol.WaitForAdmissionMessage{
		Type:         protocol.EventWaitForAdmission,
		FromIdentity: others[0].Identity,
	})
}

func (h *Hub) handleCallRequest(c *client, payload json.RawMessage) {
	var req protocol.CallRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.To == "" {
		h.logger.Printf("bad call-request from %s: %v", c.id, err)
		return
	}

	if room := h.sharedRoom(c.ctx, c.id, req.To); room != "" {
		if !h.tracker.startOffer(room, c.id, req.To) {
			h.logger.Printf("negotiation: offer for %s ignored by tracker (phase=%s)", room, h.tracker.phase(room))
		}
	}

	delivered := h.sendTo(req.To, protocol.IncomingCallMessage{
		Type:         protocol.EventIncomingCall,
		From:         c.id,
		FromIdentity: req.Identity,
		Offer:        req.Offer,
	})
	if !delivered {
		h.logger.Printf("ws: call-request target missing %s -> %s", c.id, req.To)
	}
}

func (h *Hub) handleCallAccept(c *client, payload json.RawMessage) {
	var acc protocol.CallAcceptPayload
	if err := json.Unmarshal(payload, &acc); err != nil || acc.To == "" {
		h.logger.Printf("bad call-accept from %s: %v", c.id, err)
		return
	}

	if room := h.sharedRoom(c.ctx, c.id, acc.To); room != "" {
		h.tracker.accept(room)
	}

	if !h.sendTo(acc.To, protocol.CallAcceptedMessage{
		Type:   protocol.EventCallAccepted,
		From:   c.id,
		Answer: acc.Answer,
	}) {
		h.logger.Printf("ws: call-accept target missing %s -> %s", c.id, acc.To)
	}
}

func (h *Hub) handleRenegotiation(c *client, event protocol.EventType, payload json.RawMessage) {
	msg := protocol.RenegotiationMessage{Type: event, From: c.id}
	var to string

	if event == protocol.EventRenegotiationRequest {
		var req protocol.RenegotiationRequestPayload
		if err := json.Unmarshal(payload, &req); err != nil || req.To == "" {
			h.logger.Printf("bad %s from %s: %v", event, c.id, err)
			return
		}
		to, msg.Offer = req.To, req.Offer
	} else {
		var ans protocol.RenegotiationAnswerPayload
		if err := json.Unmarshal(payload, &ans); err != nil || ans.To == "" {
			h.logger.Printf("bad %s from %s: %v", event, c.id, err)
			return
		}
		to, msg.Answer = ans.To, ans.Answer
	}

	if room := h.sharedRoom(c.ctx, c.id, to); room != "" {
		if event == protocol.EventRenegotiationRequest {
			h.tracker.renegotiate(room)
		} else {
			h.tracker.settle(room)
		}
	}

	// Stale or out-of-order renegotiation frames are forwarded anyway; SDP
	// ordering is the endpoints' concern, not the relay's.
	if !h.sendTo(to, msg) {
		h.logger.Printf("ws: %s target missing %s -> %s", event, c.id, to)
	}
}

func (h *Hub) handleToggle(c *client, event protocol.EventType, payload json.RawMessage) {
	var t protocol.TogglePayload
	if err := json.Unmarshal(payload, &t); err != nil || t.To == "" {
		h.logger.Printf("bad %s from %s: %v", event, c.id, err)
		return
	}
	h.sendTo(t.To, protocol.ToggleMessage{
		Type:     event,
		From:     c.id,
		Identity: t.Identity,
		IsOff:    t.IsOff,
	})
}

func (h *Hub) handleRoomRelay(c *client, event protocol.EventType, payload json.RawMessage) {
	room := protocol.RoomOf(payload)
	if room == "" {
		h.logger.Printf("bad %s from %s: no room", event, c.id)
		return
	}
	h.broadcastRoom(c.ctx, room, protocol.RelayMessage{
		Type:    event,
		From:    c.id,
		Payload: payload,
	}, c.id)
}

func (h *Hub) handleSync(c *client, payload json.RawMessage) {
	var sync protocol.SyncPayload
	if err := json.Unmarshal(payload, &sync); err != nil || sync.Target == "" {
		h.logger.Printf("bad sync-to-connection from %s: %v", c.id, err)
		return
	}
	h.sendTo(sync.Target, protocol.RelayMessage{
		Type:    protocol.EventSyncToConnection,
		From:    c.id,
		Payload: sync.Payload,
	})
}

func (h *Hub) handleLeave(c *client) {
	h.teardown(c)
}

// drop runs when a connection's read loop ends: remove the client and treat
// the disconnect as a leave for every room it was in.
func (h *Hub) drop(c *client) {
	h.teardown(c)

	h.mu.Lock()
	delete(h.clients, c.id)
	remaining := len(h.clients)
	h.mu.Unlock()

	h.logger.Printf("ws: dropped %s (clients=%d)", c.id, remaining)
	if remaining == 0 && h.onEmpty != nil {
		h.onEmpty()
	}
}

// teardown clears the peer's registry state and notifies the rooms it left.
// Safe to run more than once: a second pass finds no memberships and sends
// nothing. The identity is resolved before removal; afterwards it is gone.
func (h *Hub) teardown(c *client) {
	ctx := context.Background()

	identity, err := h.reg.IdentityForPeer(ctx, c.id)
	if err != nil && err != registry.ErrNotFound {
		h.logger.Printf("identity of %s: %v", c.id, err)
	}
	rooms, err := h.reg.Rooms(ctx, c.id)
	if err != nil {
		h.logger.Printf("rooms of %s: %v", c.id, err)
	}

	if err := h.reg.RemovePeer(ctx, c.id); err != nil {
		h.logger.Printf("remove %s: %v", c.id, err)
	}

	for _, room := range rooms {
		if h.tracker.tearDownFor(room, c.id) {
			h.logger.Printf("negotiation: torn down for %s", room)
		}
		h.broadcastRoom(ctx, room, protocol.ParticipantLeftMessage{
			Type:     protocol.EventParticipantLeft,
			Identity: identity,
			PeerID:   c.id,
			Room:     room,
		}, c.id)
	}
}

// sharedRoom finds a room both peers are members of, so negotiation progress
// can be labeled against it. Returns "" when the peers share no room; the
// message is still forwarded, only untracked.
func (h *Hub) sharedRoom(ctx context.Context, a, b string) string {
	roomsA, err := h.reg.Rooms(ctx, a)
	if err != nil || len(roomsA) == 0 {
		return ""
	}
	roomsB, err := h.reg.Rooms(ctx, b)
	if err != nil {
		return ""
	}
	for _, ra := range roomsA {
		for _, rb := range roomsB {
			if ra == rb {
				return ra
			}
		}
	}
	return ""
}
