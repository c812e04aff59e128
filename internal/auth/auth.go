package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/botlens/botlens/internal/logger"
)

// Credentials is the persisted auth bundle captured by the out-of-scope
// login flow. Only the validity signal derived from it is consumed here;
// this package never performs a login itself.
type Credentials struct {
	BearerToken  string `json:"bearer_token"`
	GuestUserID  string `json:"guest_userid"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // unix seconds
	ClientID     string `json:"client_id,omitempty"`
}

// Expired reports whether the bearer token is past (or within a minute of)
// its recorded expiry. Credentials with no recorded expiry are treated as
// expired.
func (c *Credentials) Expired() bool {
	if c.ExpiresAt == 0 {
		return true
	}
	return time.Now().Unix() >= c.ExpiresAt-60
}

// Manager loads, refreshes, and probes the stored credentials, and fans
// out reauth-success events to any consumer (the snapshot scheduler uses
// them to capture immediately instead of waiting for the next tick).
type Manager struct {
	file     string
	tokenURL string // OAuth token endpoint for refresh_token grants
	probeURL string // cheap authed endpoint used as the validity probe
	http     *resty.Client

	mu     sync.Mutex
	reauth chan struct{}
}

// NewManager creates a credentials manager backed by a JSON file.
func NewManager(file, tokenURL, probeURL string) *Manager {
	return &Manager{
		file:     file,
		tokenURL: tokenURL,
		probeURL: probeURL,
		http:     resty.New().SetTimeout(10 * time.Second),
		reauth:   make(chan struct{}, 1),
	}
}

// Events returns the reauth-success event stream.
func (m *Manager) Events() <-chan struct{} {
	return m.reauth
}

// NotifyReauth signals that a login flow has produced fresh credentials.
// The event is coalesced: an undelivered pending event absorbs new ones.
func (m *Manager) NotifyReauth() {
	select {
	case m.reauth <- struct{}{}:
	default:
	}
}

// Load reads the credentials file. A missing file yields nil credentials
// and no error.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.file)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return &creds, nil
}

// Save writes the credentials file, creating the directory if needed.
func (m *Manager) Save(creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	dir := filepath.Dir(m.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	if err := os.WriteFile(m.file, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// Current returns fresh credentials, refreshing the bearer token through
// the OAuth endpoint when it has expired and a refresh token is on file.
// A successful refresh emits a reauth event.
func (m *Manager) Current(ctx context.Context) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.BearerToken == "" || creds.GuestUserID == "" {
		return nil, fmt.Errorf("no credentials on file")
	}

	if !creds.Expired() {
		return creds, nil
	}

	if creds.RefreshToken == "" || creds.ClientID == "" {
		return nil, fmt.Errorf("token expired and no refresh token on file")
	}

	logger.Info("Bearer token expired, attempting refresh")
	refreshed, err := m.refresh(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	if err := m.Save(refreshed); err != nil {
		logger.Warning("Failed to persist refreshed credentials: %v", err)
	}
	logger.Info("Token refresh successful")
	m.notifyLocked()
	return refreshed, nil
}

func (m *Manager) notifyLocked() {
	select {
	case m.reauth <- struct{}{}:
	default:
	}
}

func (m *Manager) refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}

	resp, err := m.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": creds.RefreshToken,
			"client_id":     creds.ClientID,
		}).
		SetResult(&tokens).
		Post(m.tokenURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	refreshToken := tokens.RefreshToken
	if refreshToken == "" {
		refreshToken = creds.RefreshToken
	}
	expiresIn := tokens.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	return &Credentials{
		BearerToken:  tokens.AccessToken,
		GuestUserID:  creds.GuestUserID,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Unix() + expiresIn,
		ClientID:     creds.ClientID,
	}, nil
}

// IsValid reports whether the stored credentials currently pass an authed
// probe request. All failure modes read as invalid; the caller reacts to
// the signal, not the cause.
func (m *Manager) IsValid(ctx context.Context) bool {
	creds, err := m.Current(ctx)
	if err != nil {
		logger.Debug("Auth validity check failed: %v", err)
		return false
	}
	if m.probeURL == "" {
		return true
	}

	resp, err := m.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+creds.BearerToken).
		SetHeader("x-guest-userid", creds.GuestUserID).
		Get(m.probeURL)
	if err != nil {
		logger.Warning("Auth probe failed: %v", err)
		return false
	}
	if resp.IsError() {
		logger.Warning("Auth probe returned status %d", resp.StatusCode())
		return false
	}
	return true
}
