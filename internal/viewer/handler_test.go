package viewer_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ypk/ringwatch/internal/archive"
	"github.com/ypk/ringwatch/internal/viewer"
)

const clipName = "20240115_143000_Front_Door_motion_abc123.mp4"

func newTestViewer(t *testing.T, passwordHash string) (*archive.Store, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, clipName), []byte("mp4data"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := archive.NewStore(dir, 1)
	if err != nil {
		t.Fatal(err)
	}

	rl := viewer.NewRateLimiter(100, 100)
	t.Cleanup(rl.Stop)

	h := viewer.New(store, os.DirFS(filepath.Join("..", "..", "templates")), passwordHash)
	return store, h.Routes(rl)
}

func TestIndexListsClips(t *testing.T) {
	_, router := newTestViewer(t, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Front Door", "Motion", "01/15/2024", "14:30:00", clipName} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestServeClip(t *testing.T) {
	_, router := newTestViewer(t, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/clips/"+clipName, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "mp4data" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestServeClipRejectsTraversal(t *testing.T) {
	store, router := newTestViewer(t, "")

	// Plant a file just outside the archive root.
	outside := filepath.Join(filepath.Dir(store.Root()), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, target := range []string{
		"/clips/..%2Fsecret.txt",
		"/clips/%2E%2E%2Fsecret.txt",
		"/clips/..%5Csecret.txt",
		"/clips/missing.mp4",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want 404", target, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("GET %s leaked file contents", target)
		}
	}
}

func TestPasswordProtection(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	_, router := newTestViewer(t, string(hash))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("anyone", "hunter2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("anyone", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}
}
