package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codepair/internal/app/rooms"
	"codepair/pkg/protocol"
)

// Settings is the client bootstrap configuration served at /api/settings.
type Settings struct {
	ICEMode     string
	ICEServers  []protocol.ICEServer
	PublicWSURL string
}

// SPAHandler serves the built frontend with index.html fallback routing.
func SPAHandler(staticDir string) http.Handler {
	fs := http.FileServer(http.Dir(staticDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		path := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}

		index := filepath.Join(staticDir, "index.html")
		http.ServeFile(w, r, index)
	})
}

// SettingsHandler tells clients where to open the signaling socket and which
// ICE servers to use.
func SettingsHandler(settings Settings) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]interface{}{
			"wsURL":      resolveWSURL(settings, r),
			"iceMode":    settings.ICEMode,
			"iceServers": settings.ICEServers,
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("settings encode error: %v", err)
		}
	})
}

func resolveWSURL(settings Settings, r *http.Request) string {
	if settings.PublicWSURL != "" {
		return settings.PublicWSURL
	}

	proto := "ws"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		proto = "wss"
	}

	host := r.Host
	if host == "" {
		host = "localhost:8080"
	}
	return fmt.Sprintf("%s://%s/ws", proto, host)
}

// CreateRoomHandler mints a new invite code.
func CreateRoomHandler(store rooms.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		room, err := store.Create(ctx)
		if err != nil {
			log.Printf("room create error: %v", err)
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		payload := map[string]interface{}{
			"code": room.Code,
			"url":  roomURL(r, room.Code),
		}
		_ = json.NewEncoder(w).Encode(payload)
	})
}

// RoomHandler looks up or deletes a room code at /api/rooms/{code}.
func RoomHandler(store rooms.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
		code = strings.Trim(code, "/")

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			room, err := store.Get(ctx, code)
			if err != nil {
				if errors.Is(err, rooms.ErrNotFound) {
					http.NotFound(w, r)
					return
				}
				log.Printf("room lookup error: %v", err)
				http.Error(w, "failed to lookup room", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			payload := map[string]interface{}{
				"code":      room.Code,
				"createdAt": room.CreatedAt,
				"url":       roomURL(r, room.Code),
			}
			_ = json.NewEncoder(w).Encode(payload)

		case http.MethodDelete:
			if err := store.Delete(ctx, code); err != nil {
				if errors.Is(err, rooms.ErrNotFound) {
					http.NotFound(w, r)
					return
				}
				log.Printf("room delete error: %v", err)
				http.Error(w, "failed to delete room", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func roomURL(r *http.Request, code string) string {
	proto := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		proto = "https"
	}
	host := r.Host
	if host == "" {
		host = "localhost:8080"
	}
	return fmt.Sprintf("%s://%s/rooms/%s", proto, host, code)
}
