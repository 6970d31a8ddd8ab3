package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/district-ratings/internal/logger"
)

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		wantOK     bool
	}{
		{
			name:       "successful fetch",
			body:       `<html><body><div class="rating">8</div></body></html>`,
			statusCode: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "created is still 2xx",
			body:       "<html></html>",
			statusCode: http.StatusCreated,
			wantOK:     true,
		},
		{
			name:       "not found",
			body:       "missing",
			statusCode: http.StatusNotFound,
			wantOK:     false,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ua := r.Header.Get("User-Agent"); ua != UserAgent {
					t.Errorf("User-Agent = %q, want browser user agent", ua)
				}
				if r.Method != http.MethodGet {
					t.Errorf("Method = %s, want GET", r.Method)
				}
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := New(Options{})
			body, ok := f.Fetch(context.Background(), server.URL)

			if ok != tt.wantOK {
				t.Fatalf("Fetch() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && body != tt.body {
				t.Errorf("Fetch() body = %q, want %q", body, tt.body)
			}
			if !ok && body != "" {
				t.Errorf("Fetch() body = %q on failure, want empty", body)
			}
		})
	}
}

func TestFetch_NoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, ok := New(Options{}).Fetch(context.Background(), server.URL); ok {
		t.Fatal("Fetch() ok = true for 503")
	}
	if calls != 1 {
		t.Errorf("server saw %d requests, want exactly 1", calls)
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer server.Close()

	f := New(Options{Timeout: 50 * time.Millisecond})
	if _, ok := f.Fetch(context.Background(), server.URL); ok {
		t.Error("Fetch() ok = true, want timeout failure")
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	before := logger.DefaultMetrics().Counter(metricFailures)
	if _, ok := New(Options{}).Fetch(context.Background(), url); ok {
		t.Error("Fetch() ok = true for closed server")
	}
	if after := logger.DefaultMetrics().Counter(metricFailures); after != before+1 {
		t.Errorf("failure counter = %d, want %d", after, before+1)
	}
}

func TestFetch_Delay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	delay := 80 * time.Millisecond
	f := New(Options{Delay: delay})
	if f.Delay() != delay {
		t.Errorf("Delay() = %v, want %v", f.Delay(), delay)
	}

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, ok := f.Fetch(context.Background(), server.URL); !ok {
			t.Fatal("Fetch() failed")
		}
	}

	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Errorf("two fetches took %v, want at least %v", elapsed, 2*delay)
	}
}

func TestFetch_ContextCancelledDuringDelay(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := New(Options{Delay: 5 * time.Second})
	start := time.Now()
	if _, ok := f.Fetch(ctx, server.URL); ok {
		t.Error("Fetch() ok = true with cancelled context")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Fetch() did not stop waiting when the context was cancelled")
	}
	if hit {
		t.Error("request was sent after the context was cancelled")
	}
}

func TestFetch_BrowserTLS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "custom-agent/1.0" {
			t.Errorf("User-Agent = %q, want custom-agent/1.0", ua)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := New(Options{UserAgent: "custom-agent/1.0", BrowserTLS: true})
	if body, ok := f.Fetch(context.Background(), server.URL); !ok || body != "ok" {
		t.Errorf("Fetch() = %q, %v; want ok", body, ok)
	}
}

func TestSaveSource(t *testing.T) {
	const page = `<html><body><a href="/pennsylvania/pittsburgh-school-district/">Pittsburgh</a></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(page))
	}))
	defer server.Close()

	f := New(Options{})

	t.Run("writes page", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources", "pittsburgh.html")
		if err := f.SaveSource(context.Background(), server.URL+"/page", path); err != nil {
			t.Fatalf("SaveSource() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading saved source: %v", err)
		}
		if string(data) != page {
			t.Errorf("saved source = %q, want %q", data, page)
		}
	})

	t.Run("failed fetch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.html")
		err := f.SaveSource(context.Background(), server.URL+"/missing", path)
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("SaveSource() error = %v, want %v", err, ErrNoContent)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Error("SaveSource() created a file for a failed fetch")
		}
	})
}
