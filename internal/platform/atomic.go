package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PendingSuffix marks files that are still being written
const PendingSuffix = ".part"

// PendingFile is a temporary file in the destination directory that replaces
// the final path only on Commit.
type PendingFile struct {
	*os.File
	finalPath string
	finished  bool
}

// CreatePending opens a temporary file next to finalPath
func CreatePending(finalPath string) (*PendingFile, error) {
	dir := filepath.Dir(finalPath)
	f, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".*"+PendingSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	return &PendingFile{File: f, finalPath: finalPath}, nil
}

// FinalPath returns the path the file is committed to
func (p *PendingFile) FinalPath() string {
	return p.finalPath
}

// Commit flushes the temp file and renames it over the final path
func (p *PendingFile) Commit() error {
	if p.finished {
		return errors.New("platform: pending file already finished")
	}
	p.finished = true

	if err := p.Sync(); err != nil {
		p.discard()
		return fmt.Errorf("failed to sync %s: %w", p.Name(), err)
	}
	if err := p.Close(); err != nil {
		os.Remove(p.Name())
		return fmt.Errorf("failed to close %s: %w", p.Name(), err)
	}
	if err := os.Chmod(p.Name(), DefaultFilePermissions); err != nil {
		os.Remove(p.Name())
		return fmt.Errorf("failed to set permissions on %s: %w", p.Name(), err)
	}
	if err := os.Rename(p.Name(), p.finalPath); err != nil {
		os.Remove(p.Name())
		return fmt.Errorf("failed to move %s into place: %w", p.finalPath, err)
	}
	return nil
}

// Abort closes and removes the temp file. It is a no-op after Commit.
func (p *PendingFile) Abort() {
	if p.finished {
		return
	}
	p.finished = true
	p.discard()
}

func (p *PendingFile) discard() {
	p.Close()
	os.Remove(p.Name())
}

// IsPendingName reports whether name is an uncommitted temp file
func IsPendingName(name string) bool {
	return strings.HasSuffix(name, PendingSuffix)
}
