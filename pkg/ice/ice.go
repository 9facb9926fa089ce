package ice

import (
	"log"
	"os"
	"strings"

	"codepair/pkg/protocol"
)

// Config is the ICE setup advertised to clients on connect.
type Config struct {
	Mode    string
	Servers []protocol.ICEServer
}

var defaultSTUN = []string{"stun:stun.l.google.com:19302"}

// LoadFromEnv parses ICE configuration from environment variables.
//
// Env vars:
// - STUN_URLS: comma-separated STUN URLs
// - TURN_URLS: comma-separated TURN URLs
// - TURN_USERNAME / TURN_PASSWORD: TURN credentials (if required)
// - ICE_MODE: stun-turn (default), turn-only, stun-only
func LoadFromEnv() Config {
	mode := strings.TrimSpace(os.Getenv("ICE_MODE"))
	if mode == "" {
		mode = "stun-turn"
	}

	cfg := Config{Mode: mode}
	turnOnly := strings.EqualFold(mode, "turn-only")
	stunOnly := strings.EqualFold(mode, "stun-only")

	if !turnOnly {
		stunURLs := splitAndClean(os.Getenv("STUN_URLS"))
		if len(stunURLs) == 0 {
			stunURLs = defaultSTUN
		}
		cfg.Servers = append(cfg.Servers, protocol.ICEServer{URLs: stunURLs})
	}

	if !stunOnly {
		turnURLs := splitAndClean(os.Getenv("TURN_URLS"))
		if len(turnURLs) > 0 {
			cfg.Servers = append(cfg.Servers, protocol.ICEServer{
				URLs:       turnURLs,
				Username:   strings.TrimSpace(os.Getenv("TURN_USERNAME")),
				Credential: strings.TrimSpace(os.Getenv("TURN_PASSWORD")),
			})
		} else if !turnOnly {
			log.Printf("TURN not configured; set TURN_URLS and credentials for relay fallback")
		}
	}

	if turnOnly && len(cfg.Servers) == 0 {
		log.Printf("ICE_MODE=turn-only set but no TURN servers are configured; falling back to default STUN")
		cfg.Servers = append(cfg.Servers, protocol.ICEServer{URLs: defaultSTUN})
	}

	log.Printf("ICE servers loaded (mode=%s): %+v", cfg.Mode, cfg.Servers)
	return cfg
}

func splitAndClean(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
