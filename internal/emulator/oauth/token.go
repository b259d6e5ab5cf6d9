// Package oauth implements the emulator's OAuth2 client credentials endpoint
// and the bearer tokens it hands out.
package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/pigeonworks-llc/billed/internal/emulator/store"
)

const (
	tokenLength = 32
	tokenTTL    = 3600 // 1 hour in seconds
)

// TokenManager manages OAuth2 access tokens.
type TokenManager struct {
	store *store.Store
	now   func() time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(s *store.Store) *TokenManager {
	return &TokenManager{store: s, now: time.Now}
}

// GenerateToken generates a new access token and stores it.
func (tm *TokenManager) GenerateToken() (string, error) {
	token, err := generateRandomToken(tokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	expiresAt := tm.now().Add(tokenTTL * time.Second).Unix()
	if err := tm.store.PutString(store.BucketTokens, token, strconv.FormatInt(expiresAt, 10)); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, nil
}

// ValidateToken validates an access token.
func (tm *TokenManager) ValidateToken(token string) (bool, error) {
	expiresAtStr, err := tm.store.GetString(store.BucketTokens, token)
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get token: %w", err)
	}

	expiresAt, err := strconv.ParseInt(expiresAtStr, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse expiration time: %w", err)
	}

	if tm.now().Unix() > expiresAt {
		_ = tm.store.DeleteString(store.BucketTokens, token)
		return false, nil
	}

	return true, nil
}

// RevokeToken revokes an access token.
func (tm *TokenManager) RevokeToken(token string) error {
	return tm.store.DeleteString(store.BucketTokens, token)
}

// PurgeExpired removes every expired token and returns how many were removed.
func (tm *TokenManager) PurgeExpired() (int, error) {
	now := tm.now().Unix()
	return tm.store.DeleteStringsWhere(store.BucketTokens, func(_, value string) bool {
		expiresAt, err := strconv.ParseInt(value, 10, 64)
		return err != nil || now > expiresAt
	})
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
