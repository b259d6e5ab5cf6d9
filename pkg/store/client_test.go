package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// fakeStore serves the bills endpoints the way the emulator does.
type fakeStore struct {
	tokenCalls atomic.Int32
	lastAuth   atomic.Value
	lastBill   atomic.Value
	lastFile   atomic.Value
	status     int
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.FormValue("grant_type") != "client_credentials" || r.FormValue("client_id") != "billed" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /api/1/bills", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, `{"error":"server_error","error_description":"boom"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(BillsResponse{Bills: DefaultFixtures()})
	})
	save := func(w http.ResponseWriter, r *http.Request, status int) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var b bills.Bill
		if err := json.Unmarshal([]byte(r.FormValue("bill")), &b); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if id := r.PathValue("id"); id != "" {
			if id == "missing" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"error":"not_found","error_description":"Bill not found"}`)
				return
			}
			b.ID = id
		} else {
			b.ID = "new-id"
		}
		f.lastBill.Store(b)
		if file, header, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(file)
			file.Close()
			f.lastFile.Store(header.Filename + ":" + header.Header.Get("Content-Type") + ":" + string(data))
			b.FileName = header.Filename
			b.FileURL = "http://files/" + header.Filename
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(BillResponse{Bill: b})
	}
	mux.HandleFunc("POST /api/1/bills", func(w http.ResponseWriter, r *http.Request) {
		save(w, r, http.StatusCreated)
	})
	mux.HandleFunc("PUT /api/1/bills/{id}", func(w http.ResponseWriter, r *http.Request) {
		save(w, r, http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeStore) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		APIURL:       server.URL,
		ClientID:     "billed",
		ClientSecret: "secret",
	})
}

func TestClientList(t *testing.T) {
	f := &fakeStore{}
	client := newTestClient(t, f)

	list, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 4 {
		t.Errorf("List() returned %d bills, expected 4", len(list))
	}
	if auth, _ := f.lastAuth.Load().(string); auth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, expected bearer token", auth)
	}

	// The token is cached between calls.
	if _, err := client.List(context.Background()); err != nil {
		t.Fatalf("second List() error: %v", err)
	}
	if n := f.tokenCalls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, expected 1", n)
	}
}

func TestClientCreateWithFile(t *testing.T) {
	f := &fakeStore{}
	client := newTestClient(t, f)

	bill := bills.Bill{
		Type:   "Transports",
		Name:   "Taxi",
		Date:   "2022-07-02",
		Amount: decimal.NewFromInt(50),
		VAT:    decimal.NewFromInt(10),
		Pct:    20,
		Status: bills.StatusPending,
	}
	file := &bills.File{Name: "receipt.jpg", ContentType: "image/jpeg", Content: []byte("jpeg")}

	created, err := client.Create(context.Background(), Payload{Bill: bill, File: file})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.ID != "new-id" {
		t.Errorf("ID = %q, expected new-id", created.ID)
	}
	if created.FileName != "receipt.jpg" {
		t.Errorf("FileName = %q", created.FileName)
	}

	sent, _ := f.lastBill.Load().(bills.Bill)
	if sent.Status != bills.StatusPending || !sent.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected bill sent: %+v", sent)
	}
	if got, _ := f.lastFile.Load().(string); got != "receipt.jpg:image/jpeg:jpeg" {
		t.Errorf("file part = %q", got)
	}
}

func TestClientUpdate(t *testing.T) {
	f := &fakeStore{}
	client := newTestClient(t, f)

	t.Run("existing bill", func(t *testing.T) {
		updated, err := client.Update(context.Background(), Payload{Bill: bills.Bill{ID: "47qAXb6fIm2zOKkLzMro", Name: "encore"}})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		if updated.ID != "47qAXb6fIm2zOKkLzMro" {
			t.Errorf("ID = %q", updated.ID)
		}
	})

	t.Run("missing bill", func(t *testing.T) {
		_, err := client.Update(context.Background(), Payload{Bill: bills.Bill{ID: "missing"}})
		if err == nil || err.Error() != "Erreur 404" {
			t.Fatalf("expected Erreur 404, got %v", err)
		}
		apiErr, ok := err.(*APIError)
		if !ok || apiErr.Code != "not_found" || apiErr.Description != "Bill not found" {
			t.Errorf("unexpected error details: %#v", err)
		}
	})

	t.Run("no id", func(t *testing.T) {
		if _, err := client.Update(context.Background(), Payload{}); err == nil {
			t.Error("expected an error for an update without id")
		}
	})
}

func TestClientErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, &fakeStore{status: http.StatusInternalServerError})
		_, err := client.List(context.Background())
		if err == nil || err.Error() != "Erreur 500" {
			t.Fatalf("expected Erreur 500, got %v", err)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		server := httptest.NewServer((&fakeStore{}).handler())
		t.Cleanup(server.Close)
		client := NewClient(ClientConfig{APIURL: server.URL, ClientID: "intruder"})

		_, err := client.List(context.Background())
		if err == nil || err.Error() != "Erreur 401" {
			t.Fatalf("expected Erreur 401, got %v", err)
		}
	})

	t.Run("unreachable store", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client := NewClient(ClientConfig{APIURL: url, AccessToken: "tok"})
		_, err := client.List(context.Background())
		if err == nil || !strings.HasPrefix(err.Error(), "Erreur réseau") {
			t.Fatalf("expected a network error, got %v", err)
		}
	})
}
