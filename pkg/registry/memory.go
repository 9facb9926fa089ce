package registry

import (
	"context"
	"sync"
)

// MemoryStore implements Store with mutex-protected maps. It is the default
// backend when Redis is not configured and the test double elsewhere.
type MemoryStore struct {
	mu             sync.RWMutex
	identityToPeer map[string]string
	peerToIdentity map[string]string
	roomMembers    map[string]map[string]bool
	peerRooms      map[string]map[string]bool
}

// NewMemoryStore builds an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.identityToPeer = make(map[string]string)
	s.peerToIdentity = make(map[string]string)
	s.roomMembers = make(map[string]map[string]bool)
	s.peerRooms = make(map[string]map[string]bool)
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *MemoryStore) Register(ctx context.Context, room, peerID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Last writer wins: a stale peer holding this identity loses its reverse
	// mapping but keeps its room memberships until its own removal.
	if old, ok := s.identityToPeer[identity]; ok && old != peerID {
		delete(s.peerToIdentity, old)
	}
	s.identityToPeer[identity] = peerID
	s.peerToIdentity[peerID] = identity

	if s.roomMembers[room] == nil {
		s.roomMembers[room] = make(map[string]bool)
	}
	s.roomMembers[room][peerID] = true

	if s.peerRooms[peerID] == nil {
		s.peerRooms[peerID] = make(map[string]bool)
	}
	s.peerRooms[peerID][room] = true
	return nil
}

func (s *MemoryStore) RemovePeer(ctx context.Context, peerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity, ok := s.peerToIdentity[peerID]; ok {
		if s.identityToPeer[identity] == peerID {
			delete(s.identityToPeer, identity)
		}
		delete(s.peerToIdentity, peerID)
	}

	for room := range s.peerRooms[peerID] {
		delete(s.roomMembers[room], peerID)
		if len(s.roomMembers[room]) == 0 {
			delete(s.roomMembers, room)
		}
	}
	delete(s.peerRooms, peerID)
	return nil
}

func (s *MemoryStore) PeerForIdentity(ctx context.Context, identity string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peerID, ok := s.identityToPeer[identity]
	if !ok {
		return "", ErrNotFound
	}
	return peerID, nil
}

func (s *MemoryStore) IdentityForPeer(ctx context.Context, peerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.peerToIdentity[peerID]
	if !ok {
		return "", ErrNotFound
	}
	return identity, nil
}

func (s *MemoryStore) Members(ctx context.Context, room string) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peers := s.roomMembers[room]
	members := make([]Member, 0, len(peers))
	for peerID := range peers {
		members = append(members, Member{PeerID: peerID, Identity: s.peerToIdentity[peerID]})
	}
	return members, nil
}

func (s *MemoryStore) Rooms(ctx context.Context, peerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]string, 0, len(s.peerRooms[peerID]))
	for room := range s.peerRooms[peerID] {
		rooms = append(rooms, room)
	}
	return rooms, nil
}
