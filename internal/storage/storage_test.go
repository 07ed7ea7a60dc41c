package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestObjectPathFromPublicURL(t *testing.T) {
	s := New("https://store.example.com", "key", "videos")

	tests := []struct {
		name     string
		url      string
		wantPath string
		wantOK   bool
	}{
		{
			name:     "object in this bucket",
			url:      "https://store.example.com/storage/v1/object/public/videos/abc/final.mp4",
			wantPath: "abc/final.mp4",
			wantOK:   true,
		},
		{
			name:   "different bucket",
			url:    "https://store.example.com/storage/v1/object/public/images/abc/frame.png",
			wantOK: false,
		},
		{
			name:   "external host",
			url:    "https://cdn.elsewhere.com/final.mp4",
			wantOK: false,
		},
		{
			name:   "bucket prefix with empty path",
			url:    "https://store.example.com/storage/v1/object/public/videos/",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := s.objectPathFromPublicURL(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
		})
	}
}

func TestSignedDownloadURL(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprintf(w, `{"signedURL": "/storage/v1/object/sign/videos/abc/final.mp4?token=tok"}`)
	}))
	defer server.Close()

	s := New(server.URL, "service-key", "videos")

	publicURL := server.URL + "/storage/v1/object/public/videos/abc/final.mp4"
	signed, err := s.SignedDownloadURL(context.Background(), publicURL, 3600)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if gotPath != "/storage/v1/object/sign/videos/abc/final.mp4" {
		t.Errorf("signed wrong object path: %s", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("missing service key auth, got %q", gotAuth)
	}
	if !strings.Contains(signed, "token=tok") {
		t.Errorf("signed URL missing token: %s", signed)
	}
}

func TestSignedDownloadURLPassesThroughExternalURL(t *testing.T) {
	s := New("https://store.example.com", "key", "videos")

	external := "https://cdn.elsewhere.com/final.mp4"
	signed, err := s.SignedDownloadURL(context.Background(), external, 3600)
	if err != nil {
		t.Fatalf("pass-through failed: %v", err)
	}
	if signed != external {
		t.Errorf("external URL must pass through unchanged, got %s", signed)
	}
}
