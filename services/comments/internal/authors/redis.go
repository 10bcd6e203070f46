package authors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "comments:author:"

// NewRedisClient parses a redis:// URL, falling back to treating it as a
// plain host:port address.
func NewRedisClient(rawURL string) *redis.Client {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		opts = &redis.Options{Addr: rawURL}
	}
	return redis.NewClient(opts)
}

// CachedDirectory serves summaries from Redis and falls through to Inner for
// misses. Redis failures degrade to Inner; they are never returned.
type CachedDirectory struct {
	Client *redis.Client
	Inner  Directory
	TTL    time.Duration
	Log    *zap.Logger
}

func NewCachedDirectory(client *redis.Client, inner Directory, ttl time.Duration, log *zap.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedDirectory{Client: client, Inner: inner, TTL: ttl, Log: log}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

func (d *CachedDirectory) Lookup(ctx context.Context, ids []string) (map[string]Summary, error) {
	ids = unique(ids)
	out := make(map[string]Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	missing := ids
	vals, err := d.Client.MGet(ctx, keys...).Result()
	if err != nil {
		d.Log.Warn("author cache read failed", zap.Error(err))
	} else {
		missing = missing[:0:0]
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var s Summary
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[ids[i]] = s
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := d.Inner.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := d.Client.Pipeline()
	for id, s := range fresh {
		out[id] = s
		b, err := json.Marshal(s)
		if err != nil {
			continue
		}
		pipe.Set(ctx, cacheKey(id), b, d.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		d.Log.Warn("author cache write failed", zap.Error(err))
	}
	return out, nil
}
