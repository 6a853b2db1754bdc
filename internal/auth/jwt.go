package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const CtxSubject ctxKey = "sub"

// JWTCfg holds operator authentication configuration
type JWTCfg struct {
	HS256Secret string // HMAC secret for HS256 tokens
	DevMode     bool   // Allow X-Debug-Sub header (DANGEROUS: only for local dev)
}

// Enabled reports whether operator routes require any credential
func (c JWTCfg) Enabled() bool {
	return c.HS256Secret != "" || c.DevMode
}

// Middleware creates HTTP middleware guarding operator endpoints
// Supports two modes:
// 1. Production: Bearer token with HS256 JWT validation
// 2. Development: X-Debug-Sub header (ONLY when DevMode=true)
// With neither configured the routes are open; Routes logs a warning once.
func Middleware(cfg JWTCfg) func(http.Handler) http.Handler {
	if cfg.DevMode {
		log.Warn().Msg("SECURITY WARNING: DevMode enabled - X-Debug-Sub header will bypass JWT authentication")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxSubject, "anonymous")))
				return
			}

			tok := ""
			if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
				tok = h[7:]
			}

			sub := ""

			// Development mode: accept X-Debug-Sub ONLY if DevMode is enabled and no token present
			if cfg.DevMode && tok == "" {
				sub = r.Header.Get("X-Debug-Sub")
				if sub != "" {
					log.Debug().Str("sub", sub).Msg("using X-Debug-Sub header (dev mode)")
				}
			}

			if tok != "" {
				if cfg.HS256Secret == "" {
					log.Warn().Msg("bearer token presented but no HS256 secret configured")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				claims := jwt.MapClaims{}
				t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return []byte(cfg.HS256Secret), nil
				})

				if err != nil || !t.Valid {
					log.Warn().Err(err).Msg("jwt validation failed")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}

				if s, err := claims.GetSubject(); err == nil {
					sub = s
				}
			}

			if sub == "" {
				log.Warn().Str("path", r.URL.Path).Msg("missing subject (no JWT sub or X-Debug-Sub header)")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			logger := log.Ctx(r.Context()).With().Str("operator", sub).Logger()
			ctx := logger.WithContext(context.WithValue(r.Context(), CtxSubject, sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject extracts the authenticated operator subject from request context
func Subject(ctx context.Context) string {
	if v := ctx.Value(CtxSubject); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
