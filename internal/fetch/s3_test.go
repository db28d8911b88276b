package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestS3SourceDownload(t *testing.T) {
	body := payload(50 * 1024)
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(body)
	}))
	defer server.Close()

	src, err := NewS3Source(context.Background(), S3Config{
		Endpoint:     server.URL,
		Region:       "us-east-1",
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewS3Source failed: %v", err)
	}

	d := New(testOptions(), nil)
	d.Register("s3", src)

	dest := filepath.Join(t.TempDir(), "clip.mp4")
	n, err := d.Download(context.Background(), "s3://spredmedia-video-content/videos/clip.mp4", dest, nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(len(body)) {
		t.Errorf("Expected %d bytes, got %d", len(body), n)
	}
	if gotPath != "/spredmedia-video-content/videos/clip.mp4" {
		t.Errorf("Unexpected request path %s", gotPath)
	}

	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, body) {
		t.Error("Downloaded content differs")
	}
}

func TestS3SourceRejectsIncompleteLocation(t *testing.T) {
	src, err := NewS3Source(context.Background(), S3Config{Region: "us-east-1", AccessKey: "a", SecretKey: "b"}, nil)
	if err != nil {
		t.Fatalf("NewS3Source failed: %v", err)
	}

	d := New(testOptions(), nil)
	d.Register("s3", src)

	_, err = d.Download(context.Background(), "s3://bucket-only", filepath.Join(t.TempDir(), "a.mp4"), nil)
	if !errors.Is(err, ErrInvalidS3Location) {
		t.Errorf("Expected ErrInvalidS3Location, got %v", err)
	}
}
