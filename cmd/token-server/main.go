// Command token-server is an example session-token endpoint compatible with
// the SDK's token provider. It mints short-lived HS256 JWTs carrying a fresh
// session identifier.
//
// Configuration comes from STAGELINK_* environment variables; a .env file is
// honored when present. STAGELINK_SIGNING_SECRET is required.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

type serverConfig struct {
	Port          int
	SigningSecret string
	TokenTTL      time.Duration
	Issuer        string
}

func loadConfig() (serverConfig, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("STAGELINK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STAGELINK_")), "_", ".", -1)
	}), nil); err != nil {
		return serverConfig{}, err
	}

	if !k.Exists("port") {
		_ = k.Set("port", 9010)
	}
	if !k.Exists("token.ttl") {
		_ = k.Set("token.ttl", "1h")
	}
	if !k.Exists("issuer") {
		_ = k.Set("issuer", "stagelink-token-server")
	}

	return serverConfig{
		Port:          k.Int("port"),
		SigningSecret: k.String("signing.secret"),
		TokenTTL:      k.Duration("token.ttl"),
		Issuer:        k.String("issuer"),
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.SigningSecret == "" {
		fmt.Fprintln(os.Stderr, "STAGELINK_SIGNING_SECRET is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	issuer := &tokenIssuer{
		secret: []byte(cfg.SigningSecret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/v1/session-token", issuer.handleIssue)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("token server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// handleIssue mints one session credential per request. The session id is a
// fresh UUID echoed both as a claim and in the response body so the client
// and service can correlate the session.
func (t *tokenIssuer) handleIssue(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	expiresAt := time.Now().Add(t.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		http.Error(w, "signing failed", http.StatusInternalServerError)
		return
	}

	token := types.SessionToken{
		Token:          signed,
		Type:           "Bearer",
		SessionID:      sessionID,
		ExpirationTime: expiresAt,
	}
	writeJSON(w, http.StatusOK, token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
