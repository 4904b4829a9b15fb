package favicon

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const maxTestBytes = 1 << 20

func TestFetchPrefersLinkedIcon(t *testing.T) {
	linked := []byte("linked-icon-bytes")
	fallback := []byte("fallback-icon-bytes")
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<!doctype html>
<html><head>
<meta charset="utf-8">
<link rel="stylesheet" href="/style.css">
<link rel="shortcut icon" href="/static/icon.png">
</head><body></body></html>`))
	})
	mux.HandleFunc("/static/icon.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(linked)
	})
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(fallback)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	got, err := Fetch(context.Background(), ts.Client(), ts.URL, maxTestBytes)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(got, linked) {
		t.Errorf("Fetch() = %q, want linked icon", got)
	}
}

func TestFetchFallsBackToWellKnownPath(t *testing.T) {
	fallback := []byte("fallback-icon-bytes")
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>no icons here</title></head><body></body></html>`))
	})
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(fallback)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	got, err := Fetch(context.Background(), ts.Client(), ts.URL+"/app/page.html", maxTestBytes)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(got, fallback) {
		t.Errorf("Fetch() = %q, want fallback icon", got)
	}
}

func TestFetchRelativeIconResolvedAgainstPage(t *testing.T) {
	linked := []byte("relative-icon-bytes")
	mux := http.NewServeMux()
	mux.HandleFunc("/app/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><link rel="icon" href="assets/icon.svg"></head></html>`))
	})
	mux.HandleFunc("/app/assets/icon.svg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(linked)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	got, err := Fetch(context.Background(), ts.Client(), ts.URL+"/app/", maxTestBytes)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(got, linked) {
		t.Errorf("Fetch() = %q, want relative icon", got)
	}
}

func TestFetchNoIconAnywhere(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	if icon, err := Fetch(context.Background(), ts.Client(), ts.URL, maxTestBytes); err == nil {
		t.Errorf("Fetch() = %d bytes, want error", len(icon))
	}
}

func TestFetchBoundsIconSize(t *testing.T) {
	huge := bytes.Repeat([]byte("x"), 64)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><link rel="icon" href="/icon.bin"></head></html>`))
	})
	mux.HandleFunc("/icon.bin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(huge)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	got, err := Fetch(context.Background(), ts.Client(), ts.URL, 16)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(got) != 16 {
		t.Errorf("icon length = %d, want truncation at 16", len(got))
	}
}

func TestFetchInvalidURL(t *testing.T) {
	if _, err := Fetch(context.Background(), http.DefaultClient, "not-a-url", maxTestBytes); err == nil {
		t.Error("Fetch() with invalid url expected error")
	}
}
