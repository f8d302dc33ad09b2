package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"harukcal/internal/pkg/auth/jwt"
	"harukcal/internal/pkg/limiter"
	"harukcal/internal/pkg/logx"
	"harukcal/internal/pkg/resp"
)

const (
	LoginRate  = 0.5
	LoginBurst = 10
)

// Router sets up the routing table of the development Member Service.
// It configures CORS with credentials, request logging, per-IP rate limiting on the
// credential endpoints and the cookie identity extractor. ctx bounds the limiter cleanup.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	loginLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(LoginRate), LoginBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger("memberdev"))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "harukcal member service",
		})
	})

	r.Route("/api/members", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Group(func(public chi.Router) {
			public.Use(loginLimiter.Middleware)
			public.Post("/login", HandleLogin(deps))
			public.Post("/signup", HandleSignup(deps))
			public.Post("/search-nickname", HandleSearchNickname(deps))
		})

		api.Post("/refresh", HandleRefresh(deps))
		api.Post("/logout", HandleLogout(deps))
		api.Get("/check-nickname", HandleCheckNickname(deps))
		api.Get("/check-email", HandleCheckEmail(deps))

		api.Group(func(me chi.Router) {
			me.Use(jwt.RequireIdentity)
			me.Get("/me", HandleGetMe(deps))
			me.Put("/me", HandleUpdateMe(deps))
			me.Delete("/me", HandleDeleteMe(deps))
			me.Patch("/me/profile-image", HandleUpdateProfileImage(deps))
		})
	})

	return r
}
