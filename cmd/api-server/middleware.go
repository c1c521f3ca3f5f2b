package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/protomem/credit-bank/internal/ctxstore"
	"github.com/protomem/credit-bank/internal/metrics"
	"github.com/protomem/credit-bank/internal/response"
	"github.com/protomem/credit-bank/internal/workflow"
	"github.com/rs/cors"
	"golang.org/x/exp/slices"

	"github.com/tomasen/realip"
)

const (
	_traceIDKey   = ctxstore.Key("traceId")
	_principalKey = ctxstore.Key("principal")
)

func (app *application) traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := genTraceID()
		ctx := ctxstore.With(r.Context(), _traceIDKey, tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err != nil {
				app.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		var (
			ip     = realip.FromRequest(r)
			method = r.Method
			url    = r.URL.String()
			proto  = r.Proto
			tid    = ctxstore.MustFrom[string](r.Context(), _traceIDKey)
		)

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "method", method, "url", url, "proto", proto, _traceIDKey.String(), tid)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount)

		app.serverLogger().Info("access", userAttrs, requestAttrs, responseAttrs)
	})
}

func (app *application) CORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}).Handler(next)
}

func (app *application) instrument(next http.Handler) http.Handler {
	return metrics.InstrumentHandler(next)
}

// authenticate resolves the bearer token, if any, into a principal. Requests
// without a token pass through anonymously; a bad token is rejected.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			app.unauthorized(w, r)
			return
		}

		claims, err := app.issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			app.requestLogger(r).Debug("rejected token", "error", err)
			app.unauthorized(w, r)
			return
		}

		principal := workflow.Principal{ID: claims.UserID, Privileged: claims.Privileged}
		ctx := ctxstore.With(r.Context(), _principalKey, principal)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := principalFrom(r); !ok {
			app.unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) requirePrivileged(next http.Handler) http.Handler {
	return app.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principal, _ := principalFrom(r); !principal.Privileged {
			app.forbidden(w, r)
			return
		}

		next.ServeHTTP(w, r)
	}))
}

func (app *application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := app.clientIP(r)
		if !app.limiter.allow(ip) {
			app.requestLogger(r).Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			app.rateLimitExceeded(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address of r. Forwarding headers are honoured
// only when the peer is one of the configured trusted proxies.
func (app *application) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if slices.Contains(app.config.trustedProxies, host) {
		return realip.FromRequest(r)
	}

	return host
}

func principalFrom(r *http.Request) (workflow.Principal, bool) {
	return ctxstore.From[workflow.Principal](r.Context(), _principalKey)
}

func genTraceID() string {
	id, _ := uuid.NewRandom()
	return id.String()
}
