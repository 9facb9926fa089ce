package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"codepair/internal/app/httpapi"
	"codepair/internal/app/rooms"
	"codepair/pkg/ice"
	"codepair/pkg/registry"
	"codepair/pkg/signaling"
)

const defaultStaticPath = "../frontend/dist"

func main() {
	loadEnv()
	cfg := loadConfig()
	logConfig(cfg)

	var reg registry.Store
	var roomStore rooms.Store

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}

		redisReg := registry.NewRedisStore(rdb, "codepair")
		// Live membership never outlives the process, so stale entries from a
		// previous run are cleared on boot.
		if err := redisReg.Reset(ctx); err != nil {
			log.Printf("redis reset registry: %v", err)
		}
		reg = redisReg
		roomStore = rooms.NewRedisStore(rdb, "codepair")
	} else {
		log.Printf("REDIS_ADDR not set; using in-memory registry and room store")
		reg = registry.NewMemoryStore()
		roomStore = rooms.NewMemoryStore()
	}

	hub := signaling.NewHub(reg, signaling.HubOptions{
		ICEServers: cfg.ICE.Servers,
		ICEMode:    cfg.ICE.Mode,
	})

	settings := httpapi.Settings{
		ICEMode:     cfg.ICE.Mode,
		ICEServers:  cfg.ICE.Servers,
		PublicWSURL: cfg.PublicWSURL,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.HTTPHandler())
	mux.Handle("/api/settings", httpapi.SettingsHandler(settings))
	mux.Handle("/api/rooms", httpapi.CreateRoomHandler(roomStore))
	mux.Handle("/api/rooms/", httpapi.RoomHandler(roomStore))
	mux.Handle("/", httpapi.SPAHandler(cfg.StaticPath))

	log.Printf("listening on %s (static: %s)", cfg.Addr, cfg.StaticPath)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	Addr        string
	RedisAddr   string
	StaticPath  string
	PublicWSURL string
	ICE         ice.Config
}

func loadConfig() config {
	return config{
		Addr:        getenv("ADDR", ":8080"),
		RedisAddr:   strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		StaticPath:  getenv("STATIC_DIR", defaultStaticPath),
		PublicWSURL: strings.TrimSpace(os.Getenv("PUBLIC_WS_URL")),
		ICE:         ice.LoadFromEnv(),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func logConfig(cfg config) {
	turnConfigured := false
	for _, s := range cfg.ICE.Servers {
		if s.Username != "" || s.Credential != "" {
			turnConfigured = true
			break
		}
	}

	log.Printf("config: addr=%s static_dir=%s redis_addr=%s ice_mode=%s ice_servers=%d turn_configured=%v",
		cfg.Addr, cfg.StaticPath, cfg.RedisAddr, cfg.ICE.Mode, len(cfg.ICE.Servers), turnConfigured)
}

func loadEnv() {
	paths := []string{
		".env",
		filepath.Join("backend", ".env"),
		"../.env",
	}
	for _, p := range paths {
		if err := loadEnvFile(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("env load warning for %s: %v", p, err)
		}
	}
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, val)
		}
	}
	return scanner.Err()
}
