package cookies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"harukcal/internal/pkg/logx"
)

// DefaultRedisTimeout bounds every Redis round trip made by a RedisJar.
const DefaultRedisTimeout = 3 * time.Second

// RedisJar stores the cookies of one origin as fields of a single Redis hash, so several
// processes (or machines) can share one signed-in session. Expired fields are removed lazily.
type RedisJar struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
	opts    options
	logger  zerolog.Logger
}

// NewRedisJar returns a jar stored under the hash key.
func NewRedisJar(client redis.UniversalClient, key string, opts ...Option) *RedisJar {
	return &RedisJar{
		client:  client,
		key:     key,
		timeout: DefaultRedisTimeout,
		opts:    buildOptions(opts),
		logger:  logx.Component("cookie_jar").With().Str("redis_key", key).Logger(),
	}
}

func (j *RedisJar) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), j.timeout)
}

func (j *RedisJar) Set(c *http.Cookie) error {
	return j.apply("/", c)
}

func (j *RedisJar) apply(defPath string, cookies ...*http.Cookie) error {
	ctx, cancel := j.ctx()
	defer cancel()

	now := j.opts.now()
	_, err := j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range cookies {
			e, remove := resolve(c, defPath, now)
			if remove {
				pipe.HDel(ctx, j.key, c.Name)
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("cookies: encode %s: %w", c.Name, err)
			}
			pipe.HSet(ctx, j.key, e.Name, data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cookies: redis write: %w", err)
	}
	return nil
}

func (j *RedisJar) Get(name string) (*http.Cookie, error) {
	ctx, cancel := j.ctx()
	defer cancel()

	data, err := j.client.HGet(ctx, j.key, name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cookies: redis read: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		j.logger.Warn().Err(err).Str("cookie", name).Msg("Dropping undecodable cookie")
		j.client.HDel(ctx, j.key, name)
		return nil, ErrNotFound
	}
	if e.expired(j.opts.now()) {
		j.client.HDel(ctx, j.key, name)
		return nil, ErrNotFound
	}
	return e.cookie(), nil
}

func (j *RedisJar) Delete(name string) error {
	ctx, cancel := j.ctx()
	defer cancel()

	if err := j.client.HDel(ctx, j.key, name).Err(); err != nil {
		return fmt.Errorf("cookies: redis delete: %w", err)
	}
	return nil
}

// SetCookies implements http.CookieJar. Failures are logged because the interface has no
// error return.
func (j *RedisJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	if err := j.apply(defaultPath(u), cookies...); err != nil {
		j.logger.Error().Err(err).Msg("Failed to store server cookies")
	}
}

// Cookies implements http.CookieJar.
func (j *RedisJar) Cookies(u *url.URL) []*http.Cookie {
	ctx, cancel := j.ctx()
	defer cancel()

	raw, err := j.client.HGetAll(ctx, j.key).Result()
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to load cookies")
		return nil
	}

	now := j.opts.now()
	entries := make(map[string]entry, len(raw))
	var stale []string
	for name, data := range raw {
		var e entry
		if err := json.Unmarshal([]byte(data), &e); err != nil || e.expired(now) {
			stale = append(stale, name)
			continue
		}
		entries[name] = e
	}
	if len(stale) > 0 {
		j.client.HDel(ctx, j.key, stale...)
	}

	return matchEntries(entries, u, now)
}
