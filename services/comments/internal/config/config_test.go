package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"COMMENTS_STORE", "DATABASE_URL", "MONGO_URI", "MONGO_DATABASE", "REDIS_URL",
		"AUTHOR_CACHE_TTL", "JWT_SECRET", "NATS_URL", "COMMENTS_EVENTS_SUBJECT"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != BackendMemory {
		t.Fatalf("expected memory store, got %q", cfg.Store)
	}
	if cfg.MongoDatabase != "comments" || cfg.EventsSubject != "comments.events" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ExplicitStore || cfg.Production {
		t.Fatalf("unexpected flags %+v", cfg)
	}
	if cfg.AuthorCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", cfg.AuthorCacheTTL)
	}
}

func TestLoad_DerivesBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != BackendMongo {
		t.Fatalf("expected mongo, got %q", cfg.Store)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/comments")
	cfg, err = Load(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != BackendPostgres {
		t.Fatalf("expected postgres to win, got %q", cfg.Store)
	}
}

func TestLoad_ExplicitBackendNeedsURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMMENTS_STORE", "Postgres")
	if _, err := Load(false); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
	t.Setenv("COMMENTS_STORE", "cassandra")
	if _, err := Load(false); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTHOR_CACHE_TTL", "soon")
	if _, err := Load(false); err == nil {
		t.Fatal("expected error for invalid ttl")
	}
}

func TestLoad_ProductionRules(t *testing.T) {
	clearEnv(t)
	if _, err := Load(true); err == nil {
		t.Fatal("expected memory store to be rejected in production")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/comments")
	if _, err := Load(true); err == nil {
		t.Fatal("expected missing JWT_SECRET to be rejected in production")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	if _, err := Load(true); err != nil {
		t.Fatalf("load: %v", err)
	}
}
