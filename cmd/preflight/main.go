// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hamed0406/uptimemonitor/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := config.LoadDotEnv(".env"); err != nil {
		fail(".env could not be parsed: " + err.Error())
	}

	rawKeys := strings.TrimSpace(os.Getenv("API_KEYS"))
	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	cfg := config.FromEnv()

	switch {
	case rawKeys == "" && admin == "":
		warn("API_KEYS and ADMIN_API_KEYS are empty; every request runs as owner \"local\".")
	case rawKeys != "" && len(cfg.APIKeys) == 0:
		fail("API_KEYS has no valid owner:key pairs.")
	case rawKeys != "" && len(cfg.APIKeys) != len(strings.Split(rawKeys, ",")):
		warn("API_KEYS has entries that are not owner:key pairs; they are ignored.")
	default:
		ok(fmt.Sprintf("API_KEYS: %d key(s)", len(cfg.APIKeys)))
	}
	if admin == "" {
		warn("ADMIN_API_KEYS is empty; POST /api/rounds is open to any authenticated caller.")
	}

	ok("API_ADDR=" + cfg.Addr)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty; API will use in-memory stores and lose state on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if cfg.RoundInterval == 0 {
		warn("ROUND_INTERVAL_MS=0; rounds only run via POST /api/rounds.")
	} else {
		ok("round interval " + cfg.RoundInterval.String() + ", probe timeout " + cfg.ProbeTimeout.String())
	}
	if cfg.ProbeTimeout >= cfg.RoundInterval && cfg.RoundInterval > 0 {
		warn("PROBE_TIMEOUT_MS is not below ROUND_INTERVAL_MS; slow targets can delay the next round.")
	}

	if cfg.Graphite.Host == "" {
		warn("GRAPHITE_HOST empty; Graphite forwarding disabled.")
	} else {
		if p, err := strconv.Atoi(cfg.Graphite.Port); err != nil || p <= 0 || p > 65535 {
			fail("GRAPHITE_PORT is not a valid port: " + cfg.Graphite.Port)
		}
		if cfg.Graphite.Protocol != "tcp" && cfg.Graphite.Protocol != "http" {
			fail("GRAPHITE_PROTOCOL must be tcp or http, got " + cfg.Graphite.Protocol)
		}
		ok("Graphite " + cfg.Graphite.Protocol + "://" + cfg.Graphite.Host + ":" + cfg.Graphite.Port)
	}
	if len(cfg.KafkaBroker) > 0 {
		ok("Kafka topic " + cfg.KafkaTopic + " on " + strings.Join(cfg.KafkaBroker, ","))
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows any origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	ok("preflight passed")
}
