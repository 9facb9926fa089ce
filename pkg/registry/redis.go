package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis hashes for the identity map and
// sets for room membership.
type RedisStore struct {
	rdb           *redis.Client
	keyIdentities string
	keyPeers      string
	prefix        string
}

// NewRedisStore builds a registry backed by Redis. Prefix is optional
// (e.g., "codepair").
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "codepair"
	}
	return &RedisStore{
		rdb:           rdb,
		keyIdentities: fmt.Sprintf("%s:identities", p),
		keyPeers:      fmt.Sprintf("%s:peers", p),
		prefix:        p,
	}
}

func (s *RedisStore) roomKey(room string) string {
	return fmt.Sprintf("%s:room:%s:members", s.prefix, room)
}

func (s *RedisStore) peerRoomsKey(peerID string) string {
	return fmt.Sprintf("%s:peer:%s:rooms", s.prefix, peerID)
}

func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) Register(ctx context.Context, room, peerID, identity string) error {
	old, err := s.rdb.HGet(ctx, s.keyIdentities, identity).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	if old != "" && old != peerID {
		_ = pipe.HDel(ctx, s.keyPeers, old)
	}
	_ = pipe.HSet(ctx, s.keyIdentities, identity, peerID)
	_ = pipe.HSet(ctx, s.keyPeers, peerID, identity)
	_ = pipe.SAdd(ctx, s.roomKey(room), peerID)
	_ = pipe.SAdd(ctx, s.peerRoomsKey(peerID), room)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RemovePeer(ctx context.Context, peerID string) error {
	identity, err := s.rdb.HGet(ctx, s.keyPeers, peerID).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	rooms, err := s.rdb.SMembers(ctx, s.peerRoomsKey(peerID)).Result()
	if err != nil {
		return err
	}

	// Only unbind the identity if this peer still owns it; a later join for
	// the same identity must keep its newer binding.
	owner := ""
	if identity != "" {
		owner, err = s.rdb.HGet(ctx, s.keyIdentities, identity).Result()
		if err != nil && err != redis.Nil {
			return err
		}
	}

	pipe := s.rdb.TxPipeline()
	_ = pipe.HDel(ctx, s.keyPeers, peerID)
	if identity != "" && owner == peerID {
		_ = pipe.HDel(ctx, s.keyIdentities, identity)
	}
	for _, room := range rooms {
		_ = pipe.SRem(ctx, s.roomKey(room), peerID)
	}
	_ = pipe.Del(ctx, s.peerRoomsKey(peerID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) PeerForIdentity(ctx context.Context, identity string) (string, error) {
	peerID, err := s.rdb.HGet(ctx, s.keyIdentities, identity).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return peerID, nil
}

func (s *RedisStore) IdentityForPeer(ctx context.Context, peerID string) (string, error) {
	identity, err := s.rdb.HGet(ctx, s.keyPeers, peerID).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return identity, nil
}

func (s *RedisStore) Members(ctx context.Context, room string) ([]Member, error) {
	peers, err := s.rdb.SMembers(ctx, s.roomKey(room)).Result()
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return nil, nil
	}
	identities, err := s.rdb.HMGet(ctx, s.keyPeers, peers...).Result()
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(peers))
	for i, peerID := range peers {
		identity, _ := identities[i].(string)
		members = append(members, Member{PeerID: peerID, Identity: identity})
	}
	return members, nil
}

func (s *RedisStore) Rooms(ctx context.Context, peerID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.peerRoomsKey(peerID)).Result()
}
