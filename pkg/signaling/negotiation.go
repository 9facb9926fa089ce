package signaling

import "sync"

// Phase is the server-side label for a room's call negotiation progress. It
// is not authoritative for WebRTC wire state; each peer's own stack holds
// that. The tracker only refuses transitions that would skip the handshake.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOfferSent
	PhaseConnected
	PhaseRenegotiating
	PhaseTornDown
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOfferSent:
		return "offer-sent"
	case PhaseConnected:
		return "connected"
	case PhaseRenegotiating:
		return "renegotiating"
	case PhaseTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

type session struct {
	caller string
	callee string
	phase  Phase
}

// negotiationTracker records one labeled pass-through session per room.
// Sessions exist between the first call-request and teardown; a torn-down
// session is discarded so a fresh call-request starts again from idle.
type negotiationTracker struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newNegotiationTracker() *negotiationTracker {
	return &negotiationTracker{sessions: make(map[string]*session)}
}

// startOffer moves a room from idle to offer-sent. Returns false when a
// session already exists in a later phase; the message is still relayed by
// the caller, only the label is withheld.
func (t *negotiationTracker) startOffer(room, caller, callee string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[room]; ok {
		return false
	}
	t.sessions[room] = &session{caller: caller, callee: callee, phase: PhaseOfferSent}
	return true
}

// accept collapses offer-sent straight to connected; ICE completion is
// invisible to the signaling layer.
func (t *negotiationTracker) accept(room string) bool {
	return t.advance(room, PhaseOfferSent, PhaseConnected)
}

func (t *negotiationTracker) renegotiate(room string) bool {
	return t.advance(room, PhaseConnected, PhaseRenegotiating)
}

func (t *negotiationTracker) settle(room string) bool {
	return t.advance(room, PhaseRenegotiating, PhaseConnected)
}

func (t *negotiationTracker) advance(room string, from, to Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[room]
	if !ok || s.phase != from {
		return false
	}
	s.phase = to
	return true
}

// phase reports the room's current phase, idle when no session exists.
func (t *negotiationTracker) phase(room string) Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[room]
	if !ok {
		return PhaseIdle
	}
	return s.phase
}

// tearDownFor discards the room's session if peerID is a party to it.
// Returns true when a session was actually torn down.
func (t *negotiationTracker) tearDownFor(room, peerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[room]
	if !ok || (s.caller != peerID && s.callee != peerID) {
		return false
	}
	delete(t.sessions, room)
	return true
}
