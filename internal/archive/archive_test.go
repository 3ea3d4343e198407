package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastFetcher(retries int) *Fetcher {
	return NewFetcher(Config{RateLimit: 1000, RateBurst: 100, MaxRetries: retries}, zerolog.Nop())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	got, err := fastFetcher(3).Fetch(context.Background(), srv.URL+"/obs.tar")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("body: %q", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls: %d", calls.Load())
	}
}

func TestFetchStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such observation", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastFetcher(3).Fetch(context.Background(), srv.URL+"/missing")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 HTTPError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("404 should not be retried, calls: %d", calls.Load())
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	start := time.Now()
	got, err := fastFetcher(2).Fetch(context.Background(), srv.URL+"/throttled")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "ok" {
		t.Fatalf("body: %q", got)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("retried after %v, before the advertised Retry-After", elapsed)
	}
}

func TestParseRetryAfter(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"":     0,
		"7":    7 * time.Second,
		" 2 ":  2 * time.Second,
		"-3":   0,
		"soon": 0,
	} {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastFetcher(2).Fetch(context.Background(), srv.URL+"/flaky")
	if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
		t.Fatalf("want retries-exceeded error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls: %d", calls.Load())
	}
}

func makeTarball(t *testing.T, gzipped bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.Writer = &buf
	var gz *gzip.Writer
	if gzipped {
		gz = gzip.NewWriter(&buf)
		w = gz
	}
	tw := tar.NewWriter(w)

	if err := tw.WriteHeader(&tar.Header{Name: "obs/", Mode: 0o755, Typeflag: tar.TypeDir}); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"obs/README":       "simulated observation\n",
		"obs/data/vis.bin": "\x01\x02\x03",
	}
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func TestFetchAndUnpack(t *testing.T) {
	tarball := makeTarball(t, true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarball)
	}))
	defer srv.Close()

	dir := t.TempDir()
	if err := fastFetcher(1).FetchAndUnpack(context.Background(), srv.URL+"/obs.tar.gz", dir); err != nil {
		t.Fatalf("fetch and unpack: %v", err)
	}

	readme, err := os.ReadFile(filepath.Join(dir, "obs", "README"))
	if err != nil || string(readme) != "simulated observation\n" {
		t.Fatalf("README: %q %v", readme, err)
	}
	vis, err := os.ReadFile(filepath.Join(dir, "obs", "data", "vis.bin"))
	if err != nil || string(vis) != "\x01\x02\x03" {
		t.Fatalf("vis.bin: %q %v", vis, err)
	}
}

func TestUnpackPlainTar(t *testing.T) {
	dir := t.TempDir()
	if err := Unpack(bytes.NewReader(makeTarball(t, false)), dir); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "obs", "README")); err != nil {
		t.Fatalf("missing README: %v", err)
	}
}

func TestUnpackRejectsTraversal(t *testing.T) {
	for _, name := range []string{"../evil.txt", "/etc/evil.txt"} {
		var buf bytes.Buffer
		tw := tar.NewWriter(&buf)
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: 4, Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		tw.Write([]byte("evil"))
		tw.Close()

		if err := Unpack(bytes.NewReader(buf.Bytes()), t.TempDir()); err == nil {
			t.Fatalf("entry %q was not rejected", name)
		}
	}
}

func TestFetchFileCleansUpOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "obs.tar.gz")
	if _, err := fastFetcher(1).FetchFile(context.Background(), srv.URL+"/obs.tar.gz", dest); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("dest exists after failed fetch: %v", err)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Fatalf("part file left behind: %v", err)
	}
}
