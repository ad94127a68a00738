package originclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sgai-proxy/work/config"
	"sgai-proxy/work/logger"
)

func TestFetch_returnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	cfg := &config.Config{UserAgent: "test-agent"}
	c := New(cfg, logger.New("error"))

	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("expected body %q, got %q", "hello", body)
	}
}

func TestFetch_non5xxClientErrorIsNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.Config{UserAgent: "test-agent"}
	c := New(cfg, logger.New("error"))

	_, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if hits != 1 {
		t.Errorf("expected exactly 1 request for a non-retryable 4xx, got %d", hits)
	}
}

func TestFetch_cachesWhenCacheEnabled(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("cached-body"))
	}))
	defer srv.Close()

	cfg := &config.Config{UserAgent: "test-agent", CacheEnabled: true, CacheDuration: time.Hour}
	c := New(cfg, logger.New("error"))

	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected the second fetch to be served from cache, got %d origin hits", hits)
	}
}
