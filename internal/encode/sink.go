package encode

import (
	"fmt"
	"io"
)

// File is the subset of *os.File a FileSink writes to
type File interface {
	io.Writer
	io.Seeker
	Truncate(size int64) error
}

// FileSink decodes each text chunk back to bytes and appends it to an open file
type FileSink struct {
	file    File
	written int64
}

// NewFileSink creates a sink writing to file from its current offset
func NewFileSink(file File) *FileSink {
	return &FileSink{file: file}
}

// WriteText decodes text with strategy and writes the bytes
func (s *FileSink) WriteText(text string, strategy Strategy) error {
	data, err := DecodeText(strategy, text)
	if err != nil {
		return err
	}
	n, err := s.file.Write(data)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("encode: write chunk: %w", err)
	}
	return nil
}

// Reset truncates the file and rewinds to its start
func (s *FileSink) Reset() error {
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("encode: truncate: %w", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("encode: seek: %w", err)
	}
	s.written = 0
	return nil
}

// Written returns the number of bytes written since the last Reset
func (s *FileSink) Written() int64 {
	return s.written
}
