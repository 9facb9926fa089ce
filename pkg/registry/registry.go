package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an identity or peer has no mapping.
var ErrNotFound = errors.New("registry: not found")

// Member pairs a live peer id with its declared identity.
type Member struct {
	PeerID   string
	Identity string
}

// Store is the identity map plus room registry. Identities map to at most one
// peer at a time (last writer wins); rooms exist exactly while their member
// set is non-empty. All operations are idempotent.
type Store interface {
	Reset(ctx context.Context) error

	// Register binds identity to peerID and adds peerID to room. A repeat
	// registration for the same identity overwrites the previous binding.
	Register(ctx context.Context, room, peerID, identity string) error

	// RemovePeer drops every mapping and room membership referencing peerID.
	// Removing an absent peer is a no-op.
	RemovePeer(ctx context.Context, peerID string) error

	PeerForIdentity(ctx context.Context, identity string) (string, error)
	IdentityForPeer(ctx context.Context, peerID string) (string, error)

	// Members lists the peers currently in room, in no particular order.
	Members(ctx context.Context, room string) ([]Member, error)

	// Rooms lists the rooms peerID is currently a member of.
	Rooms(ctx context.Context, peerID string) ([]string, error)
}
