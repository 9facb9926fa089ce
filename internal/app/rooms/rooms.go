package rooms

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Room is invite-link metadata for an interview room. Live membership is not
// kept here; a signaling room exists exactly while peers are joined to it.
type Room struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store describes room-code creation and lookup operations.
type Store interface {
	Create(ctx context.Context) (*Room, error)
	Get(ctx context.Context, code string) (*Room, error)
	Delete(ctx context.Context, code string) error
}

// ErrNotFound is returned when a room code does not exist.
var ErrNotFound = errors.New("room not found")

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// generateCode produces a short, link-friendly room code.
func generateCode() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return strings.ToLower(codeEncoding.EncodeToString(b))
}

// MemoryStore keeps room codes in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*Room)}
}

func (s *MemoryStore) Create(ctx context.Context) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < 5; i++ {
		code := generateCode()
		if _, exists := s.rooms[code]; exists {
			continue
		}
		room := &Room{Code: code, CreatedAt: time.Now().UTC()}
		s.rooms[code] = room
		return room, nil
	}
	return nil, errors.New("failed to generate unique room code")
}

func (s *MemoryStore) Get(ctx context.Context, code string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.TrimSpace(code)
	if _, ok := s.rooms[code]; !ok {
		return ErrNotFound
	}
	delete(s.rooms, code)
	return nil
}

// RedisStore persists room codes in Redis so invite links survive restarts.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore builds a room store scoped under the provided prefix (e.g., "codepair").
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "codepair"
	}
	return &RedisStore{rdb: rdb, prefix: p}
}

func (s *RedisStore) roomKey(code string) string {
	return fmt.Sprintf("%s:rooms:%s", s.prefix, code)
}

func (s *RedisStore) Create(ctx context.Context) (*Room, error) {
	for i := 0; i < 5; i++ {
		code := generateCode()
		now := time.Now().UTC()
		ok, err := s.rdb.HSetNX(ctx, s.roomKey(code), "created_at", now.Format(time.RFC3339)).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return &Room{Code: code, CreatedAt: now}, nil
	}
	return nil, errors.New("failed to generate unique room code")
}

func (s *RedisStore) Get(ctx context.Context, code string) (*Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}

	vals, err := s.rdb.HGetAll(ctx, s.roomKey(code)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	createdAt := time.Now().UTC()
	if ts, ok := vals["created_at"]; ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			createdAt = parsed
		}
	}
	return &Room{Code: code, CreatedAt: createdAt}, nil
}

func (s *RedisStore) Delete(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrNotFound
	}
	deleted, err := s.rdb.Del(ctx, s.roomKey(code)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}
