package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"harukcal/internal/app/authflow"
	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/cookies"
	"harukcal/internal/app/issue"
	"harukcal/internal/app/meal"
	"harukcal/internal/app/member"
	"harukcal/internal/app/photo"
	"harukcal/internal/app/session"
	"harukcal/internal/app/state"
	"harukcal/internal/app/storage"
	"harukcal/internal/configs"
)

// app is the wired client toolkit for one CLI invocation.
type app struct {
	cfg     *configs.AppConfig
	store   *session.CookieStore
	members *member.Client
	meals   *meal.Client
	issues  *issue.Client
	state   *state.Container
	auth    *authflow.Service
	boot    *authflow.Bootstrapper

	// photos is nil when storage is not configured.
	photos *photo.Service

	closers []func() error
}

// openJar returns the cookie jar selected by COOKIE_JAR.
func openJar(ctx context.Context, cfg *configs.AppConfig) (cookies.Jar, func() error, error) {
	switch cfg.CookieJar {
	case configs.JarMemory:
		return cookies.NewMemoryJar(), nil, nil
	case configs.JarRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis cookie jar at %s: %w", cfg.RedisAddr, err)
		}
		return cookies.NewRedisJar(client, cfg.RedisJarKey), client.Close, nil
	default:
		jar, err := cookies.OpenFileJar(cfg.CookieJarPath)
		if err != nil {
			return nil, nil, err
		}
		return jar, nil, nil
	}
}

// newApp wires the toolkit on top of jar.
func newApp(ctx context.Context, cfg *configs.AppConfig, jar cookies.Jar, httpOpts ...authhttp.Option) (*app, error) {
	store := session.NewCookieStore(jar)

	opts := append([]authhttp.Option{authhttp.WithTimeout(cfg.RequestTimeout)}, httpOpts...)
	hc, err := authhttp.New(cfg.MemberServiceURL, jar, store, opts...)
	if err != nil {
		return nil, err
	}

	members := member.NewClient(hc, member.WithLoginRetry(cfg.LoginMaxRetries, cfg.LoginRetryDelay))

	st, err := state.NewFromStore(store)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		members: members,
		meals:   meal.NewClient(hc),
		issues:  issue.NewClient(hc),
		state:   st,
		auth:    authflow.NewService(members, store, st),
		boot:    authflow.NewBootstrapper(store, members, st),
	}

	if cfg.StorageEnabled() {
		objects, err := storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.StorageBucket,
			S3Endpoint:        cfg.StorageEndpoint,
			S3AccessKeyID:     cfg.StorageAccessKeyID,
			S3SecretAccessKey: cfg.StorageSecretAccessKey,
			PublicBaseURL:     cfg.StoragePublicURL,
		})
		if err != nil {
			return nil, err
		}
		a.photos = photo.NewService(objects, a.auth, a.auth)
	}

	return a, nil
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
