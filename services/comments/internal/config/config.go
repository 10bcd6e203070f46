package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendMongo    Backend = "mongo"
)

type Config struct {
	// Store selects the comment backend. Derived from the configured URLs
	// when COMMENTS_STORE is unset.
	Store         Backend
	ExplicitStore bool
	Production    bool
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	// RedisURL enables the author summary cache when set.
	RedisURL       string
	AuthorCacheTTL time.Duration
	JWTSecret      string
	NATSURL        string
	EventsSubject  string
}

func Load(production bool) (Config, error) {
	cfg := Config{
		Store:          Backend(strings.ToLower(strings.TrimSpace(os.Getenv("COMMENTS_STORE")))),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MongoURI:       strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase:  strings.TrimSpace(os.Getenv("MONGO_DATABASE")),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		AuthorCacheTTL: 5 * time.Minute,
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		NATSURL:        strings.TrimSpace(os.Getenv("NATS_URL")),
		EventsSubject:  strings.TrimSpace(os.Getenv("COMMENTS_EVENTS_SUBJECT")),
		Production:     production,
	}
	cfg.ExplicitStore = cfg.Store != ""
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "comments"
	}
	if cfg.EventsSubject == "" {
		cfg.EventsSubject = "comments.events"
	}
	if v := strings.TrimSpace(os.Getenv("AUTHOR_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("AUTHOR_CACHE_TTL: invalid duration %q", v)
		}
		cfg.AuthorCacheTTL = d
	}

	switch cfg.Store {
	case "":
		switch {
		case cfg.DatabaseURL != "":
			cfg.Store = BackendPostgres
		case cfg.MongoURI != "":
			cfg.Store = BackendMongo
		default:
			cfg.Store = BackendMemory
		}
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			return Config{}, errors.New("MONGO_URI is required for the mongo store")
		}
	default:
		return Config{}, fmt.Errorf("COMMENTS_STORE: unknown backend %q", cfg.Store)
	}

	if production {
		if cfg.Store == BackendMemory {
			return Config{}, errors.New("in-memory comment store is not allowed in production")
		}
		if cfg.JWTSecret == "" {
			return Config{}, errors.New("JWT_SECRET is required in production")
		}
	}
	return cfg, nil
}
