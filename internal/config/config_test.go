package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  db: 2
  stateTtl: 30s
  poolTtl: 2m
postgres:
  url: postgres://quiz@localhost/quizdb
quiz:
  defaultDifficulty: 5
  leaderboardSize: 25
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected server/redis config: %+v", cfg)
	}
	if cfg.Redis.StateTTL != "30s" || cfg.Redis.PoolTTL != "2m" {
		t.Fatalf("unexpected TTLs: %+v", cfg.Redis)
	}
	if cfg.Quiz.DefaultDifficulty != 5 || cfg.Quiz.LeaderboardSize != 25 {
		t.Fatalf("unexpected quiz config: %+v", cfg.Quiz)
	}
}

func TestTTLDuration(t *testing.T) {
	if d := TTLDuration("30s", time.Minute); d != 30*time.Second {
		t.Fatalf("parsed duration = %v", d)
	}
	if d := TTLDuration("", 5*time.Minute); d != 5*time.Minute {
		t.Fatalf("empty fallback = %v", d)
	}
	if d := TTLDuration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("invalid fallback = %v", d)
	}
}
