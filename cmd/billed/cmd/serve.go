package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/billed/internal/web"
)

var secureCookie bool

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the employee front end",
	Long: `Serve the bills pages to a browser.

Employees log in with their e-mail, list their bills, preview receipts
and submit new bills. Bills are read from and written to the store at
BILLED_STORE_URL, or to the in-memory fixtures store with --mock.

Example:
  BILLED_SESSION_SECRET=change-me billed serve
  billed serve --mock`,
	Annotations: map[string]string{logFormatAnnotation: "json"},
	Run:         runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&secureCookie, "secure-cookie", false, "mark the session cookie Secure (HTTPS only)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	exitOnError(cfg.Validate([]string{"web", "addr"}, []string{"web", "sessionSecret"}), "invalid configuration")

	conn, journal := openJournal(cfg)
	defer conn.Close()

	srv, err := web.NewServer(web.Config{
		Store:         newStore(cfg),
		Journal:       journal,
		SessionSecret: []byte(cfg.Web.SessionSecret),
		SecureCookie:  secureCookie,
		Logger:        slog.Default(),
	})
	exitOnError(err, "failed to create server")

	server := &http.Server{
		Addr:         cfg.Web.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Starting billed front end", "addr", cfg.Web.Addr, "store", cfg.Store.APIURL, "mock", useMock || cfg.Web.MockStore)
	listenAndServe(server, nil)
}

// listenAndServe runs server until SIGINT or SIGTERM, then shuts it down and
// calls stop.
func listenAndServe(server *http.Server, stop func()) {
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("Shutting down server")
		if stop != nil {
			stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitOnError(err, "server error")
	}

	slog.Info("Server stopped")
}
