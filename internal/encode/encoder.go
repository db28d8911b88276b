package encode

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/spred/offline-downloader/internal/failure"
)

// Strategy names a byte-to-text encoding
type Strategy string

const (
	StrategyLatin1 Strategy = "latin1"
	StrategyBase64 Strategy = "base64"
)

// DefaultChunkSize is a multiple of 3, so base64 chunks concatenate without
// inner padding.
const DefaultChunkSize = 6 * 1024

// TextSink is a write primitive that accepts text in a declared encoding
type TextSink interface {
	WriteText(text string, strategy Strategy) error
	// Reset discards everything written so far
	Reset() error
}

// ChunkFunc is called after each chunk with bytes consumed and payload size
type ChunkFunc func(written, total int64)

// WriteError reports that every strategy failed
type WriteError struct {
	Attempted []Strategy
	Errs      []error
}

func (e *WriteError) Error() string {
	parts := make([]string, len(e.Attempted))
	for i, s := range e.Attempted {
		parts[i] = fmt.Sprintf("%s: %v", s, e.Errs[i])
	}
	return "encode: all strategies failed (" + strings.Join(parts, "; ") + ")"
}

// Unwrap exposes failure.ErrEncodingFailed and each strategy's error
func (e *WriteError) Unwrap() []error {
	return append([]error{failure.ErrEncodingFailed}, e.Errs...)
}

// Encoder writes payloads through a TextSink chunk by chunk
type Encoder struct {
	chunkSize  int
	strategies []Strategy
	logger     *slog.Logger
}

// NewEncoder creates an encoder. chunkSize is rounded down to a multiple of 3;
// values below 3 select DefaultChunkSize.
func NewEncoder(chunkSize int, logger *slog.Logger) *Encoder {
	chunkSize -= chunkSize % 3
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{
		chunkSize:  chunkSize,
		strategies: []Strategy{StrategyLatin1, StrategyBase64},
		logger:     logger,
	}
}

// ChunkSize returns the effective chunk size in bytes
func (e *Encoder) ChunkSize() int {
	return e.chunkSize
}

// Write streams data into sink and returns the strategy that succeeded.
// Cancellation is checked between chunks.
func (e *Encoder) Write(ctx context.Context, sink TextSink, data []byte, onChunk ChunkFunc) (Strategy, error) {
	werr := &WriteError{}

	for i, strategy := range e.strategies {
		if i > 0 {
			if err := sink.Reset(); err != nil {
				werr.Attempted = append(werr.Attempted, strategy)
				werr.Errs = append(werr.Errs, fmt.Errorf("reset sink: %w", err))
				return "", werr
			}
		}

		err := e.stream(ctx, sink, strategy, data, onChunk)
		if err == nil {
			return strategy, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		e.logger.Warn("encoded write rejected", "strategy", strategy, "error", err)
		werr.Attempted = append(werr.Attempted, strategy)
		werr.Errs = append(werr.Errs, err)
	}

	return "", werr
}

func (e *Encoder) stream(ctx context.Context, sink TextSink, strategy Strategy, data []byte, onChunk ChunkFunc) error {
	total := int64(len(data))
	for off := 0; off < len(data); off += e.chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(off+e.chunkSize, len(data))
		text, err := EncodeChunk(strategy, data[off:end])
		if err != nil {
			return err
		}
		if err := sink.WriteText(text, strategy); err != nil {
			return err
		}
		if onChunk != nil {
			onChunk(int64(end), total)
		}
	}
	return nil
}

// EncodeChunk encodes one chunk. For base64 the chunk length must be a
// multiple of 3 unless it is the final chunk.
func EncodeChunk(strategy Strategy, chunk []byte) (string, error) {
	switch strategy {
	case StrategyLatin1:
		// Decoding ISO-8859-1 maps every byte to the code point of equal value
		return charmap.ISO8859_1.NewDecoder().String(string(chunk))
	case StrategyBase64:
		return base64.StdEncoding.EncodeToString(chunk), nil
	}
	return "", fmt.Errorf("encode: unknown strategy %q", strategy)
}

// DecodeText converts text produced by EncodeChunk or Encode back into bytes
func DecodeText(strategy Strategy, text string) ([]byte, error) {
	switch strategy {
	case StrategyLatin1:
		out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encode: text is not latin1: %w", err)
		}
		return out, nil
	case StrategyBase64:
		out, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("encode: invalid base64: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("encode: unknown strategy %q", strategy)
}

// Text is an in-memory text representation of a payload
type Text struct {
	Strategy Strategy
	Data     string
}

// Encode builds the full text form of data chunk by chunk. It holds the whole
// result in memory; use Encoder.Write for payloads headed to disk.
func Encode(strategy Strategy, data []byte) (Text, error) {
	var b strings.Builder
	for off := 0; off < len(data); off += DefaultChunkSize {
		end := min(off+DefaultChunkSize, len(data))
		chunk, err := EncodeChunk(strategy, data[off:end])
		if err != nil {
			return Text{}, err
		}
		b.WriteString(chunk)
	}
	return Text{Strategy: strategy, Data: b.String()}, nil
}

// Decode reverses Encode
func Decode(text Text) ([]byte, error) {
	return DecodeText(text.Strategy, text.Data)
}
