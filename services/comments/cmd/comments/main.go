package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/example/comment-board/internal/platform/auth"
	"github.com/example/comment-board/internal/platform/config"
	"github.com/example/comment-board/internal/platform/db"
	"github.com/example/comment-board/internal/platform/httpserver"
	"github.com/example/comment-board/internal/platform/logging"
	"github.com/example/comment-board/internal/platform/natsconn"
	"github.com/example/comment-board/internal/platform/run"
	"github.com/example/comment-board/services/comments/internal/authors"
	svcconfig "github.com/example/comment-board/services/comments/internal/config"
	"github.com/example/comment-board/services/comments/internal/events"
	"github.com/example/comment-board/services/comments/internal/handlers"
	"github.com/example/comment-board/services/comments/internal/store"
	"github.com/example/comment-board/services/comments/internal/thread"
	"github.com/example/comment-board/services/comments/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	svc, err := svcconfig.Load(cfg.IsProduction())
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	ctx := context.Background()
	comments, pool, closeStore := initStore(ctx, log, svc)
	if closeStore != nil {
		defer closeStore()
	}
	directory, closeCache := initAuthors(log, svc, pool)
	if closeCache != nil {
		defer closeCache()
	}

	hub := events.NewHub(events.DefaultSubscriberBuffer, log)
	notifier := events.Multi{events.LogNotifier{Log: log}}
	nc, err := natsconn.Connect(natsconn.Options{URL: svc.NATSURL, Name: cfg.ServiceName, Logger: log})
	if err != nil {
		log.Warn("nats unavailable, events delivered to local stream clients only", zap.Error(err))
		notifier = append(notifier, hub)
	} else {
		defer nc.Close()
		notifier = append(notifier, events.NewNATSPublisher(nc, svc.EventsSubject))
	}

	query := thread.NewQuery(comments, directory, log)
	manager := thread.NewManager(comments, query, notifier, log)
	votes := thread.NewVotes(comments, query, notifier, log)

	if svc.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, write endpoints will reject every token")
	}
	verifier := auth.JWTVerifier{Secret: []byte(svc.JWTSecret), Leeway: 30 * time.Second}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc:      comments.Ping,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
	})
	r.Route("/v1/comments", func(r chi.Router) {
		r.Use(httpserver.AccessLog(log))

		// Public reads. The stream route must precede /{id}.
		r.Get("/", handlers.ListComments(query, log))
		r.Get("/stream", handlers.StreamEvents(hub, handlers.DefaultHeartbeat, log))
		r.Get("/{id}", handlers.GetComment(query, log))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Post("/", handlers.CreateComment(manager, log))
			r.Put("/{id}", handlers.UpdateComment(manager, log))
			r.Delete("/{id}", handlers.DeleteComment(manager, log))
			r.Post("/{id}/like", handlers.LikeComment(votes, log))
			r.Post("/{id}/dislike", handlers.DislikeComment(votes, log))
		})
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if nc != nil {
			relay := &worker.Relay{Subject: svc.EventsSubject, Sink: hub, Log: log}
			if err := relay.Start(ctx, nc); err != nil {
				log.Error("event relay", zap.Error(err))
			}
		}
		return srv.Start()
	})
	runner.Graceful("http", srv.Shutdown)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the CommentStore backend. Configuration already rejects
// the memory backend in production, so connection failures there are fatal
// while development falls back to memory.
func initStore(ctx context.Context, log *zap.Logger, cfg svcconfig.Config) (store.CommentStore, *pgxpool.Pool, func()) {
	fail := func(msg string, err error) (store.CommentStore, *pgxpool.Pool, func()) {
		if !isDevFallback(cfg) {
			log.Error(msg, zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn(msg+", falling back to in-memory comment store", zap.Error(err))
		return store.NewInMemoryCommentStore(), nil, nil
	}

	switch cfg.Store {
	case svcconfig.BackendPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail("postgres unavailable", err)
		}
		s := store.NewPostgresCommentStore(pool)
		if err := s.ApplySchema(ctx); err != nil {
			pool.Close()
			return fail("postgres schema", err)
		}
		log.Info("comment store: postgres")
		return s, pool, pool.Close

	case svcconfig.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fail("mongo unavailable", err)
		}
		s := store.NewMongoCommentStore(client.Database(cfg.MongoDatabase))
		if err := s.Ping(connectCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return fail("mongo ping failed", err)
		}
		if err := s.EnsureIndexes(connectCtx); err != nil {
			log.Warn("mongo indexes", zap.Error(err))
		}

		var pool *pgxpool.Pool
		if cfg.DatabaseURL != "" {
			if pool, err = db.Open(ctx, cfg.DatabaseURL); err != nil {
				log.Warn("postgres unavailable, author summaries use fallbacks", zap.Error(err))
				pool = nil
			}
		}
		log.Info("comment store: mongo", zap.String("database", cfg.MongoDatabase))
		return s, pool, func() {
			if pool != nil {
				pool.Close()
			}
			_ = client.Disconnect(context.Background())
		}
	}

	log.Warn("using in-memory comment store (development only)")
	return store.NewInMemoryCommentStore(), nil, nil
}

// isDevFallback reports whether a failing backend may degrade to memory. Only
// an implicitly selected backend does; an explicit COMMENTS_STORE is binding.
func isDevFallback(cfg svcconfig.Config) bool {
	return !cfg.ExplicitStore && !cfg.Production
}

// initAuthors resolves author summaries from the users table when Postgres
// is reachable, optionally through the Redis cache.
func initAuthors(log *zap.Logger, cfg svcconfig.Config, pool *pgxpool.Pool) (authors.Directory, func()) {
	var dir authors.Directory = authors.NewStaticDirectory()
	if pool != nil {
		dir = authors.NewPostgresDirectory(pool)
	}
	if cfg.RedisURL == "" {
		return dir, nil
	}
	client := authors.NewRedisClient(cfg.RedisURL)
	log.Info("author cache: redis", zap.Duration("ttl", cfg.AuthorCacheTTL))
	return authors.NewCachedDirectory(client, dir, cfg.AuthorCacheTTL, log), func() { _ = client.Close() }
}
