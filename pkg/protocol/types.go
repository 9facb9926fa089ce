package protocol

import "encoding/json"

// EventType tags every frame exchanged over the signaling socket.
type EventType string

// Client -> server events.
const (
	EventJoin                 EventType = "join"
	EventCallRequest          EventType = "call-request"
	EventCallAccept           EventType = "call-accept"
	EventRenegotiationRequest EventType = "renegotiation-request"
	EventRenegotiationAnswer  EventType = "renegotiation-answer"
	EventVideoToggle          EventType = "video-toggle"
	EventAudioToggle          EventType = "audio-toggle"
	EventCodeBroadcast        EventType = "code-broadcast"
	EventLanguageBroadcast    EventType = "language-broadcast"
	EventOutputBroadcast      EventType = "output-broadcast"
	EventSyncToConnection     EventType = "sync-to-connection"
	EventWhiteboardUpdate     EventType = "whiteboard-update"
	EventWhiteboardClear      EventType = "whiteboard-clear"
	EventLeave                EventType = "leave"
)

// Server -> client events.
const (
	EventWelcome           EventType = "welcome"
	EventJoined            EventType = "joined"
	EventParticipantJoined EventType = "participant-joined"
	EventWaitForAdmission  EventType = "wait-for-admission"
	EventIncomingCall      EventType = "incoming-call"
	EventCallAccepted      EventType = "call-accepted"
	EventParticipantLeft   EventType = "participant-left"
)

// ICEServer describes STUN/TURN servers advertised to clients.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// Envelope is the wire frame clients send; Payload is decoded per Type.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload announces an identity entering a room.
type JoinPayload struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

// CallRequestPayload opens negotiation toward a peer. The offer is an opaque
// SDP blob; this layer never inspects it.
type CallRequestPayload struct {
	To       string          `json:"to"`
	Offer    json.RawMessage `json:"offer"`
	Identity string          `json:"identity"`
}

// CallAcceptPayload answers a pending offer.
type CallAcceptPayload struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

// RenegotiationRequestPayload carries a fresh offer after a media change.
type RenegotiationRequestPayload struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

// RenegotiationAnswerPayload completes a renegotiation round.
type RenegotiationAnswerPayload struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

// TogglePayload flips the sender's camera or microphone state at the peer.
type TogglePayload struct {
	To       string `json:"to"`
	IsOff    bool   `json:"isOff"`
	Identity string `json:"identity"`
}

// CodePayload replaces the shared code buffer.
type CodePayload struct {
	Room string `json:"room"`
	Code string `json:"code"`
}

// LanguagePayload switches the shared language and its starter snippet.
type LanguagePayload struct {
	Room     string `json:"room"`
	Language string `json:"language"`
	Snippet  string `json:"snippet,omitempty"`
}

// OutputPayload shares the latest execution result. An error string is valid
// output; there is no separate error channel.
type OutputPayload struct {
	Room   string `json:"room"`
	Output string `json:"output"`
}

// WhiteboardUpdatePayload replaces the shared stroke list.
type WhiteboardUpdatePayload struct {
	Room    string          `json:"room"`
	Strokes json.RawMessage `json:"strokes"`
}

// WhiteboardClearPayload wipes the shared whiteboard.
type WhiteboardClearPayload struct {
	Room string `json:"room"`
}

// SyncPayload delivers state to one specific peer, used when an existing
// participant pushes its current buffer to a late joiner.
type SyncPayload struct {
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

// LeavePayload announces an orderly exit.
type LeavePayload struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

// roomRef extracts just the room id from any room-addressed payload.
type roomRef struct {
	Room string `json:"room"`
}

// RoomOf returns the room id named by a room-addressed payload, or "".
func RoomOf(payload json.RawMessage) string {
	var ref roomRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return ""
	}
	return ref.Room
}

// WelcomeMessage is sent once per connection, before any join.
type WelcomeMessage struct {
	Type       EventType   `json:"type"`
	PeerID     string      `json:"peerId"`
	ICEServers []ICEServer `json:"iceServers,omitempty"`
	ICEMode    string      `json:"iceMode,omitempty"`
}

// JoinedMessage echoes a successful join back to the joiner.
type JoinedMessage struct {
	Type     EventType `json:"type"`
	Identity string    `json:"identity"`
	Room     string    `json:"room"`
	PeerID   string    `json:"peerId"`
}

// ParticipantJoinedMessage tells existing members about a new arrival.
type ParticipantJoinedMessage struct {
	Type     EventType `json:"type"`
	Identity string    `json:"identity"`
	PeerID   string    `json:"peerId"`
	Room     string    `json:"room"`
}

// WaitForAdmissionMessage tells a joiner an existing member must admit it.
type WaitForAdmissionMessage struct {
	Type         EventType `json:"type"`
	FromIdentity string    `json:"fromIdentity"`
}

// IncomingCallMessage relays an offer to the callee.
type IncomingCallMessage struct {
	Type         EventType       `json:"type"`
	From         string          `json:"from"`
	FromIdentity string          `json:"fromIdentity"`
	Offer        json.RawMessage `json:"offer"`
}

// CallAcceptedMessage relays an answer back to the caller.
type CallAcceptedMessage struct {
	Type   EventType       `json:"type"`
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

// RenegotiationMessage relays a renegotiation offer or answer to the peer.
type RenegotiationMessage struct {
	Type   EventType       `json:"type"`
	From   string          `json:"from"`
	Offer  json.RawMessage `json:"offer,omitempty"`
	Answer json.RawMessage `json:"answer,omitempty"`
}

// ToggleMessage relays a camera/microphone toggle to the peer.
type ToggleMessage struct {
	Type     EventType `json:"type"`
	From     string    `json:"from"`
	Identity string    `json:"identity"`
	IsOff    bool      `json:"isOff"`
}

// RelayMessage carries an ephemeral artifact verbatim to other room members
// (or to one targeted peer for sync-to-connection).
type RelayMessage struct {
	Type    EventType       `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// ParticipantLeftMessage tells survivors a member is gone.
type ParticipantLeftMessage struct {
	Type     EventType `json:"type"`
	Identity string    `json:"identity"`
	PeerID   string    `json:"peerId"`
	Room     string    `json:"room"`
}
