package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credsFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "auth_credentials.json")
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	m := NewManager(credsFile(t), "", "")

	creds, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	m := NewManager(credsFile(t), "", "")

	want := &Credentials{
		BearerToken:  "tok",
		GuestUserID:  "guest-1",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Unix() + 3600,
		ClientID:     "client-1",
	}
	require.NoError(t, m.Save(want))

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExpired(t *testing.T) {
	assert.True(t, (&Credentials{}).Expired(), "no recorded expiry reads as expired")
	assert.True(t, (&Credentials{ExpiresAt: time.Now().Unix() + 30}).Expired(), "inside the skew window")
	assert.False(t, (&Credentials{ExpiresAt: time.Now().Unix() + 600}).Expired())
}

func TestCurrentReturnsFreshCredentialsWithoutRefresh(t *testing.T) {
	m := NewManager(credsFile(t), "", "")
	require.NoError(t, m.Save(&Credentials{
		BearerToken: "tok",
		GuestUserID: "guest-1",
		ExpiresAt:   time.Now().Unix() + 3600,
	}))

	creds, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.BearerToken)

	select {
	case <-m.Events():
		t.Fatal("no reauth event expected without a refresh")
	default:
	}
}

func TestCurrentRefreshesExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "old-refresh", r.FormValue("refresh_token"))
		assert.Equal(t, "client-1", r.FormValue("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-tok","refresh_token":"new-refresh","expires_in":7200}`))
	}))
	defer srv.Close()

	m := NewManager(credsFile(t), srv.URL, "")
	require.NoError(t, m.Save(&Credentials{
		BearerToken:  "stale",
		GuestUserID:  "guest-1",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Unix() - 10,
		ClientID:     "client-1",
	}))

	creds, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-tok", creds.BearerToken)
	assert.Equal(t, "new-refresh", creds.RefreshToken)
	assert.Equal(t, "guest-1", creds.GuestUserID)
	assert.False(t, creds.Expired())

	// The refresh was persisted and announced.
	saved, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "new-tok", saved.BearerToken)

	select {
	case <-m.Events():
	default:
		t.Fatal("expected a reauth event after a successful refresh")
	}
}

func TestCurrentExpiredWithoutRefreshTokenFails(t *testing.T) {
	m := NewManager(credsFile(t), "", "")
	require.NoError(t, m.Save(&Credentials{
		BearerToken: "stale",
		GuestUserID: "guest-1",
		ExpiresAt:   time.Now().Unix() - 10,
	}))

	_, err := m.Current(context.Background())
	assert.Error(t, err)
}

func TestNotifyReauthCoalesces(t *testing.T) {
	m := NewManager(credsFile(t), "", "")

	m.NotifyReauth()
	m.NotifyReauth()
	m.NotifyReauth()

	<-m.Events()
	select {
	case <-m.Events():
		t.Fatal("pending events must coalesce into one")
	default:
	}
}

func TestIsValidProbe(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "guest-1", r.Header.Get("x-guest-userid"))
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	m := NewManager(credsFile(t), "", srv.URL)
	require.NoError(t, m.Save(&Credentials{
		BearerToken: "tok",
		GuestUserID: "guest-1",
		ExpiresAt:   time.Now().Unix() + 3600,
	}))

	status.Store(http.StatusOK)
	assert.True(t, m.IsValid(context.Background()))

	status.Store(http.StatusUnauthorized)
	assert.False(t, m.IsValid(context.Background()))
}

func TestIsValidWithoutCredentials(t *testing.T) {
	m := NewManager(credsFile(t), "", "")
	assert.False(t, m.IsValid(context.Background()))
}
