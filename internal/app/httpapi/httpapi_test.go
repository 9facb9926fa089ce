package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codepair/internal/app/rooms"
	"codepair/pkg/protocol"
)

func TestCreateAndLookupRoom(t *testing.T) {
	store := rooms.NewMemoryStore()
	create := CreateRoomHandler(store)
	lookup := RoomHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	create.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created struct {
		Code string `json:"code"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Code == "" {
		t.Fatal("create returned empty code")
	}
	if !strings.Contains(created.URL, created.Code) {
		t.Errorf("url %q does not contain code %q", created.URL, created.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/rooms/"+created.Code, nil)
	rec = httptest.NewRecorder()
	lookup.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}
	var got struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode lookup response: %v", err)
	}
	if got.Code != created.Code {
		t.Errorf("lookup code = %q, want %q", got.Code, created.Code)
	}
}

func TestLookupMissingRoom(t *testing.T) {
	lookup := RoomHandler(rooms.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/missing", nil)
	rec := httptest.NewRecorder()
	lookup.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteRoom(t *testing.T) {
	store := rooms.NewMemoryStore()
	room, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	handler := RoomHandler(store)
	req := httptest.NewRequest(http.MethodDelete, "/api/rooms/"+room.Code, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/rooms/"+room.Code, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCreateRequiresPost(t *testing.T) {
	create := CreateRoomHandler(rooms.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	create.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestSettingsHandler(t *testing.T) {
	settings := Settings{
		ICEMode: "stun-turn",
		ICEServers: []protocol.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Host = "pair.example.com"
	rec := httptest.NewRecorder()
	SettingsHandler(settings).ServeHTTP(rec, req)

	var got struct {
		WSURL      string               `json:"wsURL"`
		ICEMode    string               `json:"iceMode"`
		ICEServers []protocol.ICEServer `json:"iceServers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WSURL != "ws://pair.example.com/ws" {
		t.Errorf("wsURL = %q", got.WSURL)
	}
	if got.ICEMode != "stun-turn" || len(got.ICEServers) != 1 {
		t.Errorf("settings = %+v", got)
	}
}

func TestSettingsHonorsForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Host = "pair.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	SettingsHandler(Settings{}).ServeHTTP(rec, req)

	var got struct {
		WSURL string `json:"wsURL"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WSURL != "wss://pair.example.com/ws" {
		t.Errorf("wsURL = %q", got.WSURL)
	}
}
