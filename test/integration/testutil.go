// Package integration runs the store client and the web front end against a
// real emulator over HTTP.
package integration

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/billed/internal/emulator"
	"github.com/pigeonworks-llc/billed/internal/emulator/files"
	emustore "github.com/pigeonworks-llc/billed/internal/emulator/store"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

// TestClientID is the only OAuth2 client the test emulators accept.
const TestClientID = "billed-test"

// emulatorEnv is an emulator backed by a temporary bbolt database.
type emulatorEnv struct {
	URL   string
	Store *emustore.Store
}

// emulatorHandler builds an emulator whose receipt URLs start with publicURL.
func emulatorHandler(t *testing.T, publicURL string, seed []bills.Bill) (http.Handler, *emustore.Store) {
	t.Helper()

	dir := t.TempDir()
	st, err := emustore.New(filepath.Join(dir, "emulator.db"))
	if err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if len(seed) > 0 {
		if _, err := st.SeedBills(seed); err != nil {
			t.Fatalf("Failed to seed bills: %v", err)
		}
	}

	storage, err := files.NewStorage(filepath.Join(dir, "uploads"), publicURL, quietLogger())
	if err != nil {
		t.Fatalf("Failed to initialize receipt storage: %v", err)
	}

	handler, _ := emulator.NewRouter(emulator.Options{
		Store:   st,
		Files:   storage,
		Clients: []string{TestClientID},
		Logger:  quietLogger(),
		Quiet:   true,
	})
	return handler, st
}

// startEmulator serves a seeded emulator on an httptest server.
func startEmulator(t *testing.T, seed []bills.Bill) *emulatorEnv {
	t.Helper()

	srv := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + srv.Listener.Addr().String()

	handler, st := emulatorHandler(t, baseURL, seed)
	srv.Config.Handler = handler
	srv.Start()
	t.Cleanup(srv.Close)

	return &emulatorEnv{URL: srv.URL, Store: st}
}

// newStoreClient returns a store client authenticated as TestClientID.
func newStoreClient(baseURL string) *store.Client {
	return store.NewClient(store.ClientConfig{
		APIURL:   baseURL,
		ClientID: TestClientID,
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

// pngReceipt encodes a w x h image.
func pngReceipt(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode receipt: %v", err)
	}
	return buf.Bytes()
}

// taxiBill is the bill employees submit in the scenarios.
func taxiBill(email string) bills.Bill {
	return bills.Bill{
		Email:  email,
		Type:   "Transports",
		Name:   "Taxi",
		Amount: decimal.NewFromInt(50),
		Date:   "2022-07-02",
		VAT:    decimal.NewFromInt(10),
		Pct:    bills.DefaultPct,
		Status: bills.StatusPending,
	}
}
