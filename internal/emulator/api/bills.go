package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pigeonworks-llc/billed/internal/emulator/files"
	"github.com/pigeonworks-llc/billed/internal/emulator/store"
	"github.com/pigeonworks-llc/billed/pkg/bills"
)

const maxUploadSize = 10 << 20 // 10 MB

// BillsHandler handles bill-related API requests.
type BillsHandler struct {
	store  *store.Store
	files  *files.Storage
	logger *slog.Logger
}

// NewBillsHandler creates a new BillsHandler.
func NewBillsHandler(s *store.Store, fs *files.Storage, logger *slog.Logger) *BillsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillsHandler{store: s, files: fs, logger: logger}
}

// List handles GET /api/1/bills, optionally filtered with ?email=.
func (h *BillsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListBills(r.URL.Query().Get("email"))
	if err != nil {
		h.logger.Error("Failed to list bills", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to list bills")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bills": list,
	})
}

// Get handles GET /api/1/bills/{id}
func (h *BillsHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.GetBill(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Bill not found")
		} else {
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to get bill")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bill": b,
	})
}

// Create handles POST /api/1/bills
//
// The body is multipart/form-data with a "bill" JSON part and an optional
// "file" part holding the receipt image.
func (h *BillsHandler) Create(w http.ResponseWriter, r *http.Request) {
	b, ok := h.readBill(w, r)
	if !ok {
		return
	}

	if err := b.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	created, err := h.store.CreateBill(b)
	if err != nil {
		h.logger.Error("Failed to create bill", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to create bill")
		return
	}

	h.logger.Info("Bill created", "id", created.ID, "email", created.Email, "file", created.FileName)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"bill": created,
	})
}

// Update handles PUT /api/1/bills/{id}
//
// Accepts the same multipart body as Create, or a plain JSON bill.
func (h *BillsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetBill(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Bill not found")
		} else {
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to get bill")
		}
		return
	}

	b, ok := h.readBill(w, r)
	if !ok {
		return
	}

	if err := b.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	updated, err := h.store.UpdateBill(id, b)
	if err != nil {
		h.logger.Error("Failed to update bill", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to update bill")
		return
	}

	h.logger.Info("Bill updated", "id", updated.ID, "status", updated.Status)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bill": updated,
	})
}

// readBill decodes the bill of a create or update request and stores its
// receipt, if any. It writes the error response itself and reports false on
// failure.
func (h *BillsHandler) readBill(w http.ResponseWriter, r *http.Request) (bills.Bill, bool) {
	var b bills.Bill

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return b, false
		}
		return b, true
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse multipart form")
		return b, false
	}

	raw := r.FormValue("bill")
	if raw == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing bill")
		return b, false
	}
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill")
		return b, false
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return b, true
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid file")
		return b, false
	}
	defer file.Close()

	stored, err := h.files.Save(header.Filename, file)
	if err != nil {
		if errors.Is(err, files.ErrNotImage) {
			writeJSONError(w, http.StatusBadRequest, "invalid_file", "Receipt must be an image")
		} else {
			h.logger.Error("Failed to store receipt", "file", header.Filename, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to store receipt")
		}
		return b, false
	}

	b.FileName = stored.FileName
	b.FileURL = stored.URL
	return b, true
}
