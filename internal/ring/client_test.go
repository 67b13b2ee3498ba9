package ring_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ypk/ringwatch/internal/ring"
)

// fakeRing emulates the handful of Ring endpoints the client touches.
type fakeRing struct {
	mux        *http.ServeMux
	srv        *httptest.Server
	requireTFA bool
	tokenHits  int
}

func newFakeRing(t *testing.T) *fakeRing {
	t.Helper()
	f := &fakeRing{mux: http.NewServeMux()}

	f.mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits++
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.Header.Get("hardware_id") == "" {
			http.Error(w, "missing hardware_id", http.StatusBadRequest)
			return
		}
		if f.requireTFA && r.FormValue("grant_type") == "password" && r.Header.Get("2fa-code") == "" {
			w.WriteHeader(http.StatusPreconditionFailed)
			w.Write([]byte(`{"error":"Verification Code is invalid or expired"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.FormValue("grant_type"),
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	f.mux.HandleFunc("/clients_api/ring_devices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{
			"doorbots": [{"id": 1, "description": "Front Door", "kind": "doorbot"}],
			"stickup_cams": [{"id": 2, "description": "Driveway", "kind": "stickup_cam"}]
		}`))
	})

	f.mux.HandleFunc("/clients_api/doorbots/1/history", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 101, "kind": "ding", "created_at": "2024-01-15T14:30:00Z", "recording": {"status": "ready"}},
			{"id": 100, "kind": "motion", "created_at": "2024-01-15T14:00:00Z", "recording": {"status": "ready"}}
		]`))
	})

	f.mux.HandleFunc("/clients_api/dings/101/recording", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("disable_redirect") != "true" {
			http.Redirect(w, r, "https://cdn.example.com/clip.mp4", http.StatusFound)
			return
		}
		w.Write([]byte(`{"url": "https://cdn.example.com/clip.mp4"}`))
	})

	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRing) client(t *testing.T, tokenFile string) *ring.Client {
	t.Helper()
	return ring.New(ring.Config{
		Username:  "user@example.com",
		Password:  "pw",
		TokenFile: tokenFile,
		BaseURL:   f.srv.URL,
		OAuthURL:  f.srv.URL + "/oauth/token",
	})
}

func TestAuthenticatePersistsToken(t *testing.T) {
	f := newFakeRing(t)
	tokenFile := filepath.Join(t.TempDir(), "ring_token.cache")

	c := f.client(t, tokenFile)
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.tokenHits != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", f.tokenHits)
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		t.Fatalf("token cache not written: %v", err)
	}
	var tok ring.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.HardwareID == "" {
		t.Errorf("token cache incomplete: %+v", tok)
	}

	// A fresh client reuses the cached token without re-authenticating.
	c2 := f.client(t, tokenFile)
	if err := c2.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.tokenHits != 1 {
		t.Errorf("cached token ignored: token endpoint hit %d times", f.tokenHits)
	}
	if c2.Token().HardwareID != tok.HardwareID {
		t.Error("hardware id not carried over from cache")
	}
}

func TestAuthenticateTwoFactorFlow(t *testing.T) {
	f := newFakeRing(t)
	f.requireTFA = true
	c := f.client(t, filepath.Join(t.TempDir(), "tok"))

	err := c.Authenticate(context.Background())
	if !errors.Is(err, ring.ErrTwoFactorRequired) {
		t.Fatalf("err = %v, want ErrTwoFactorRequired", err)
	}

	if err := c.AuthenticateWithCode(context.Background(), "123456"); err != nil {
		t.Fatalf("2fa retry failed: %v", err)
	}
}

func TestDevicesCombinesDoorbellsAndCams(t *testing.T) {
	f := newFakeRing(t)
	c := f.client(t, filepath.Join(t.TempDir(), "tok"))
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}

	devices, err := c.Devices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].Name() != "Front Door" || !devices[0].Doorbell {
		t.Errorf("doorbell = %+v", devices[0])
	}
	if devices[1].Name() != "Driveway" || devices[1].Doorbell {
		t.Errorf("camera = %+v", devices[1])
	}
}

func TestHistoryParsesEvents(t *testing.T) {
	f := newFakeRing(t)
	c := f.client(t, filepath.Join(t.TempDir(), "tok"))
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}

	events, err := c.History(context.Background(), 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != 101 || events[0].Kind != ring.KindDing {
		t.Errorf("newest event = %+v", events[0])
	}
	if events[0].Recording.Status != ring.RecordingReady {
		t.Errorf("recording status = %q", events[0].Recording.Status)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
}

func TestRecordingURLDisablesRedirect(t *testing.T) {
	f := newFakeRing(t)
	c := f.client(t, filepath.Join(t.TempDir(), "tok"))
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}

	url, err := c.RecordingURL(context.Background(), 101)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/clip.mp4" {
		t.Errorf("url = %q", url)
	}
}
