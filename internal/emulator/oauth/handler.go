package oauth

import (
	"encoding/json"
	"net/http"
	"slices"
)

// TokenResponse represents the OAuth2 token response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ErrorResponse represents an OAuth2 error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Handler handles OAuth2 endpoints.
type Handler struct {
	tokenManager *TokenManager
	clients      []string
}

// NewHandler creates a new OAuth2 handler. When clients is not empty only
// those client ids are issued tokens.
func NewHandler(tm *TokenManager, clients ...string) *Handler {
	return &Handler{tokenManager: tm, clients: clients}
}

// HandleToken handles the token endpoint.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "invalid_request", "Method not allowed")
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse form")
		return
	}

	if r.FormValue("grant_type") != "client_credentials" {
		h.writeError(w, http.StatusBadRequest, "unsupported_grant_type", "Only client_credentials is supported")
		return
	}

	clientID := r.FormValue("client_id")
	if clientID == "" {
		clientID, _, _ = r.BasicAuth()
	}
	if len(h.clients) > 0 && !slices.Contains(h.clients, clientID) {
		h.writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}

	accessToken, err := h.tokenManager.GenerateToken()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "Failed to generate access token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   tokenTTL,
	})
}

// HandleRevoke handles the token revocation endpoint (RFC 7009). Unknown
// tokens are not an error.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse form")
		return
	}

	token := r.FormValue("token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing token")
		return
	}

	if err := h.tokenManager.RevokeToken(token); err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "Failed to revoke token")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeError writes an OAuth2 error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}
