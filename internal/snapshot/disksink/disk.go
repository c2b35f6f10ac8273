// Package disksink implements a filesystem snapshot sink.
package disksink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/discochess/accuracy/internal/codec"
	"github.com/discochess/accuracy/internal/snapshot"
)

// Compile-time check that Sink implements snapshot.Sink.
var _ snapshot.Sink = (*Sink)(nil)

// Sink writes snapshots as files below a root directory.
type Sink struct {
	root  string
	codec codec.Codec
}

// New creates a disk sink rooted at dir, creating it when missing.
// The codec handles compression/decompression.
func New(dir string, c codec.Codec) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	return &Sink{root: dir, codec: c}, nil
}

// Put writes data to the file for name.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	// Check for cancellation before starting I/O.
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := snapshot.Encode(s.codec, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(name), encoded, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Get reads the file for name.
func (s *Sink) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return snapshot.Decode(s.codec, bytes.NewReader(raw))
}

// Close releases any resources held by the sink.
func (s *Sink) Close() error {
	return nil
}

// path returns the filesystem path for a snapshot.
func (s *Sink) path(name string) string {
	return filepath.Join(s.root, snapshot.Key("", name, s.codec.Extension()))
}
