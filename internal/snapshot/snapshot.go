// Package snapshot defines where rendered blunder diagrams are persisted.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/discochess/accuracy/internal/codec"
)

// ErrNotFound is returned when a snapshot does not exist in the sink.
var ErrNotFound = errors.New("snapshot: not found")

// Sink stores snapshots by name. Implementations add their own key prefix
// and compression extension.
type Sink interface {
	// Put stores data under name, replacing any previous snapshot.
	Put(ctx context.Context, name string, data []byte) error

	// Get returns the snapshot stored under name.
	Get(ctx context.Context, name string) ([]byte, error)

	// Close releases any resources held by the sink.
	Close() error
}

// Name returns the file name of the n-th SVG snapshot of a run.
func Name(n int) string {
	return NameExt(n, "svg")
}

// NameExt returns the file name of the n-th snapshot of a run in the
// format named by ext.
func NameExt(n int, ext string) string {
	return fmt.Sprintf("%s_%d.%s", ext, n, ext)
}

// Target schemes.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
)

// Target is a parsed sink location.
type Target struct {
	Scheme string

	// Bucket and Prefix are set for object storage targets.
	Bucket string
	Prefix string

	// Dir is set for file targets.
	Dir string
}

// ParseTarget parses a sink location: "s3://bucket/prefix",
// "gs://bucket/prefix", "file:///dir" or a plain directory path.
func ParseTarget(s string) (Target, error) {
	if !strings.Contains(s, "://") {
		if s == "" {
			return Target{}, errors.New("empty snapshot target")
		}
		return Target{Scheme: SchemeFile, Dir: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("parsing snapshot target: %w", err)
	}

	switch u.Scheme {
	case SchemeFile:
		return Target{Scheme: SchemeFile, Dir: u.Path}, nil
	case SchemeS3, SchemeGCS:
		if u.Host == "" {
			return Target{}, fmt.Errorf("snapshot target %q has no bucket", s)
		}
		return Target{
			Scheme: u.Scheme,
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	}
	return Target{}, fmt.Errorf("unsupported snapshot target scheme %q", u.Scheme)
}

// JoinPrefix normalizes prefix to end in a single slash, or to be empty.
func JoinPrefix(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Key returns the object name for name under prefix with ext appended.
func Key(prefix, name, ext string) string {
	key := JoinPrefix(prefix) + name
	if ext != "" {
		key += "." + ext
	}
	return key
}

// Encode compresses data with c.
func Encode(c codec.Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.Writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads and decompresses a snapshot stored with c.
func Decode(c codec.Codec, r io.Reader) ([]byte, error) {
	decompressor, err := c.Reader(r)
	if err != nil {
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	defer decompressor.Close()

	data, err := io.ReadAll(decompressor)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	return data, nil
}
