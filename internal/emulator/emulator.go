// Package emulator assembles the mocked bills backend: OAuth2 token endpoint,
// bills API and receipt files, all backed by one bbolt database.
package emulator

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pigeonworks-llc/billed/internal/emulator/api"
	"github.com/pigeonworks-llc/billed/internal/emulator/files"
	"github.com/pigeonworks-llc/billed/internal/emulator/oauth"
	"github.com/pigeonworks-llc/billed/internal/emulator/store"
)

// Options wires an emulator router.
type Options struct {
	Store   *store.Store
	Files   *files.Storage
	Clients []string // accepted OAuth2 client ids, any when empty
	Logger  *slog.Logger
	Quiet   bool // no access log
}

// NewRouter returns the emulator HTTP handler and its token manager.
func NewRouter(opts Options) (http.Handler, *oauth.TokenManager) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokenManager := oauth.NewTokenManager(opts.Store)
	oauthHandler := oauth.NewHandler(tokenManager, opts.Clients...)
	billsHandler := api.NewBillsHandler(opts.Store, opts.Files, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !opts.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Post("/oauth/token", oauthHandler.HandleToken)
	r.Post("/oauth/revoke", oauthHandler.HandleRevoke)
	r.Get("/files/{name}", opts.Files.Serve)

	r.Route("/api/1", func(r chi.Router) {
		r.Use(api.AuthMiddleware(tokenManager))

		r.Route("/bills", func(r chi.Router) {
			r.Get("/", billsHandler.List)
			r.Post("/", billsHandler.Create)
			r.Get("/{id}", billsHandler.Get)
			r.Put("/{id}", billsHandler.Update)
		})
	})

	return r, tokenManager
}

// PurgeTokens removes expired tokens every interval until ctx is done.
func PurgeTokens(ctx context.Context, tm *oauth.TokenManager, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tm.PurgeExpired()
			if err != nil {
				logger.Error("Failed to purge expired tokens", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("Purged expired tokens", "count", removed)
			}
		}
	}
}
