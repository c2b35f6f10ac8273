// Package gcssink implements a Google Cloud Storage snapshot sink.
package gcssink

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/discochess/accuracy/internal/codec"
	"github.com/discochess/accuracy/internal/snapshot"
)

// Compile-time check that Sink implements snapshot.Sink.
var _ snapshot.Sink = (*Sink)(nil)

// Sink stores snapshots as GCS objects.
type Sink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	codec  codec.Codec
}

// New creates a new GCS sink.
// The bucket must already exist.
// The codec handles compression/decompression.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Sink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Sink{
		client: client,
		bucket: client.Bucket(bucketName),
		codec:  c,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Option configures a Sink.
type Option func(*Sink)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = snapshot.JoinPrefix(prefix)
	}
}

// Put uploads data as the object for name.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	encoded, err := snapshot.Encode(s.codec, data)
	if err != nil {
		return err
	}

	w := s.bucket.Object(s.key(name)).NewWriter(ctx)
	if s.codec.Extension() == "" {
		w.ContentType = "image/svg+xml"
	}
	if _, err := w.Write(encoded); err != nil {
		w.Close()
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	return nil
}

// Get downloads the object for name.
func (s *Sink) Get(ctx context.Context, name string) ([]byte, error) {
	reader, err := s.bucket.Object(s.key(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	defer reader.Close()

	return snapshot.Decode(s.codec, reader)
}

// Close releases resources.
func (s *Sink) Close() error {
	return s.client.Close()
}

// key returns the full object key for a snapshot.
func (s *Sink) key(name string) string {
	return snapshot.Key(s.prefix, name, s.codec.Extension())
}
