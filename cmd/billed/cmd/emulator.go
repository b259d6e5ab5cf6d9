package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/billed/internal/emulator"
	"github.com/pigeonworks-llc/billed/internal/emulator/files"
	emustore "github.com/pigeonworks-llc/billed/internal/emulator/store"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

var (
	seed       bool
	anyClient  bool
	purgeEvery time.Duration
)

// emulatorCmd represents the emulator command.
var emulatorCmd = &cobra.Command{
	Use:   "emulator",
	Short: "Run the local bills backend",
	Long: `Run a local emulator of the bills backend.

It serves:
- POST /oauth/token (client credentials)
- GET/POST /api/1/bills and GET/PUT /api/1/bills/{id}
- GET /files/{name} for uploaded receipts

Bills are kept in a bbolt database at EMULATOR_DB_PATH and receipts under
EMULATOR_UPLOAD_DIR.

Example:
  billed emulator --seed
  EMULATOR_FIXTURES=./bills.yaml billed emulator --seed`,
	Annotations: map[string]string{logFormatAnnotation: "json"},
	Run:         runEmulator,
}

func init() {
	emulatorCmd.Flags().BoolVar(&seed, "seed", false, "seed bills from EMULATOR_FIXTURES or the built-in fixtures")
	emulatorCmd.Flags().BoolVar(&anyClient, "any-client", false, "accept any OAuth2 client id")
	emulatorCmd.Flags().DurationVar(&purgeEvery, "purge-interval", time.Minute, "how often expired tokens are removed")
}

func runEmulator(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	exitOnError(cfg.Validate(
		[]string{"emulator", "addr"},
		[]string{"emulator", "dbPath"},
		[]string{"emulator", "uploadDir"},
		[]string{"emulator", "publicUrl"},
	), "invalid configuration")

	st, err := emustore.New(cfg.Emulator.DBPath)
	exitOnError(err, "failed to initialize store")
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}()
	slog.Info("Database initialized", "db_path", cfg.Emulator.DBPath)

	if seed {
		list := store.DefaultFixtures()
		if cfg.Emulator.Fixtures != "" {
			list, err = store.LoadFixtures(cfg.Emulator.Fixtures)
			exitOnError(err, "failed to load fixtures")
		}
		n, err := st.SeedBills(list)
		exitOnError(err, "failed to seed bills")
		slog.Info("Seeded bills", "count", n, "fixtures", fixturesName(cfg.Emulator.Fixtures))
	}

	storage, err := files.NewStorage(cfg.Emulator.UploadDir, cfg.Emulator.PublicURL, slog.Default())
	exitOnError(err, "failed to initialize receipt storage")

	var clients []string
	if !anyClient {
		clients = []string{cfg.Store.ClientID}
	}

	handler, tokens := emulator.NewRouter(emulator.Options{
		Store:   st,
		Files:   storage,
		Clients: clients,
		Logger:  slog.Default(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emulator.PurgeTokens(ctx, tokens, purgeEvery, slog.Default())

	server := &http.Server{
		Addr:         cfg.Emulator.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Starting bills emulator", "addr", cfg.Emulator.Addr, "public_url", cfg.Emulator.PublicURL)
	listenAndServe(server, cancel)
}

func fixturesName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
