package metadata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spred/offline-downloader/internal/model"
)

func TestWriteAfterContentExists(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(content, make([]byte, 1234), 0644); err != nil {
		t.Fatalf("Failed to write content: %v", err)
	}

	md := model.TransferMetadata{
		OriginalTitle:       "Clip",
		OriginalKey:         "videos/clip",
		DownloadedAtEpochMs: 1700000000000,
		DeclaredSizeBytes:   1234,
	}
	if err := NewWriter(nil).Write(content, md); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(SidecarPath(content))
	if err != nil {
		t.Fatalf("Sidecar not written: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Sidecar is not JSON: %v", err)
	}
	for _, field := range []string{"originalTitle", "originalKey", "downloadedAtEpochMs", "declaredSizeBytes", "actualSizeBytes", "safeFileName"} {
		if _, ok := got[field]; !ok {
			t.Errorf("Sidecar is missing field %s", field)
		}
	}

	read, err := Read(content)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if read.ActualSizeBytes != 1234 {
		t.Errorf("Expected actual size 1234, got %d", read.ActualSizeBytes)
	}
	if read.SafeFileName != "clip.mp4" {
		t.Errorf("Expected safe file name clip.mp4, got %s", read.SafeFileName)
	}
}

func TestWriteRefusesMissingContent(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "missing.mp4")

	err := NewWriter(nil).Write(content, model.TransferMetadata{OriginalKey: "k"})
	if !errors.Is(err, ErrContentMissing) {
		t.Fatalf("Expected ErrContentMissing, got %v", err)
	}
	if _, err := os.Stat(SidecarPath(content)); !os.IsNotExist(err) {
		t.Error("Sidecar must not exist without content")
	}
}

func TestWriteReplacesExistingSidecar(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "clip.mp4")
	os.WriteFile(content, []byte("v1"), 0644)

	w := NewWriter(nil)
	if err := w.Write(content, model.TransferMetadata{OriginalKey: "k", DownloadedAtEpochMs: 1}); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := w.Write(content, model.TransferMetadata{OriginalKey: "k", DownloadedAtEpochMs: 2}); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	md, err := Read(content)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if md.DownloadedAtEpochMs != 2 {
		t.Errorf("Expected the newer sidecar, got timestamp %d", md.DownloadedAtEpochMs)
	}
}

func TestFind(t *testing.T) {
	modern := filepath.Join(t.TempDir(), "modern")
	legacy := filepath.Join(t.TempDir(), "legacy")
	os.MkdirAll(modern, 0755)
	os.MkdirAll(legacy, 0755)

	content := filepath.Join(legacy, "Some_Title.mp4")
	os.WriteFile(content, []byte("x"), 0644)
	if err := NewWriter(nil).Write(content, model.TransferMetadata{OriginalKey: "videos/42"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Orphan sidecar whose content was deleted
	orphan := filepath.Join(modern, "gone.mp4")
	os.WriteFile(SidecarPath(orphan), []byte(`{"originalKey":"videos/43"}`), 0644)

	got, ok := Find([]string{modern, legacy}, "videos/42")
	if !ok || got != content {
		t.Errorf("Find() = %q, %v; expected %q", got, ok, content)
	}
	if _, ok := Find([]string{modern, legacy}, "videos/43"); ok {
		t.Error("Orphan sidecar must not count as a download")
	}
	if _, ok := Find([]string{modern, legacy}, "videos/44"); ok {
		t.Error("Unknown key must not be found")
	}
}

func TestOwner(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "intro.mp4")
	if err := os.WriteFile(content, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write content: %v", err)
	}

	if key, ok := Owner(content); ok {
		t.Errorf("Owner() = %q without a sidecar, expected none", key)
	}

	if err := NewWriter(nil).Write(content, model.TransferMetadata{OriginalKey: "a/intro.mp4"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if key, ok := Owner(content); !ok || key != "a/intro.mp4" {
		t.Errorf("Owner() = %q, %v, expected a/intro.mp4", key, ok)
	}
}
