package rooms

import (
	"context"
	"testing"
)

func TestMemoryStoreCreateGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Code == "" {
		t.Fatal("room code should not be empty")
	}
	if room.CreatedAt.IsZero() {
		t.Error("createdAt should be set")
	}

	got, err := s.Get(ctx, room.Code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != room.Code {
		t.Errorf("got code %q, want %q", got.Code, room.Code)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	room, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, room.Code); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, room.Code); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, room.Code); err != ErrNotFound {
		t.Errorf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestCodesAreUnique(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room, err := s.Create(ctx)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[room.Code] {
			t.Fatalf("duplicate code %q", room.Code)
		}
		seen[room.Code] = true
	}
}
