package web

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"template-market/internal/config"
	"template-market/internal/infra/logging"
	"template-market/internal/usecase"
)

// RateLimiter is what the redemption endpoints need from the throttle; the
// redis implementation satisfies it, tests substitute an allow-all fake.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	redeemUC *usecase.RedeemUseCase
	codeUC   *usecase.CodeUseCase
	auditUC  *usecase.AuditUseCase
	tplUC    *usecase.TemplateUseCase
	auth     *AuthManager
	limiter  RateLimiter
	rl       config.RateLimitConfig
	log      *zerolog.Logger
}

func NewServer(
	redeemUC *usecase.RedeemUseCase,
	codeUC *usecase.CodeUseCase,
	auditUC *usecase.AuditUseCase,
	tplUC *usecase.TemplateUseCase,
	auth *AuthManager,
	limiter RateLimiter,
	rl config.RateLimitConfig,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		redeemUC: redeemUC,
		codeUC:   codeUC,
		auditUC:  auditUC,
		tplUC:    tplUC,
		auth:     auth,
		limiter:  limiter,
		rl:       rl,
		log:      &l,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public redemption surface, throttled per requester address.
		r.Group(func(r chi.Router) {
			r.Use(s.throttle)
			r.Post("/redeem", s.handleRedeem)
			r.Post("/templates/{id}/unlock", s.handleUnlock)
		})

		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Get("/codes", s.handleListCodes)
				r.Post("/codes", s.handleIssueCode)
				r.Put("/codes/{id}", s.handleUpdateCode)
				r.Delete("/codes/{id}", s.handleDeleteCode)
				r.Get("/logs", s.handleQueryLogs)
				r.Post("/templates", s.handleCreateTemplate)
				r.Put("/templates/{id}", s.handleUpdateTemplate)
				r.Delete("/templates/{id}", s.handleDeleteTemplate)
			})
		})
	})
	return r
}

// adminOnly rejects requests without a valid session token. The parsed
// claims are not stored anywhere: privilege is re-proved per request.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// privileged reports whether the request carries a valid admin session; it
// never fails the request.
func (s *Server) privileged(r *http.Request) bool {
	_, err := s.auth.ParseFromRequest(r)
	return err == nil
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			ip := remoteIP(r)
			ok, err := s.limiter.Allow(r.Context(), rateKey(ip), s.rl.Attempts, s.rl.Window)
			if err != nil {
				// The throttle is advisory; never block redemptions on it.
				s.log.Warn().Err(err).Msg("rate limiter unavailable")
			} else if !ok {
				writeError(w, http.StatusTooManyRequests, "too many attempts, slow down")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		ctx = logging.WithRemoteIP(ctx, remoteIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func rateKey(ip string) string { return "redeem_rate:" + ip }

// remoteIP extracts the requester's network identity for auditing: first
// X-Forwarded-For hop when present, else the peer address.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
