// Package core holds the artifact store contract shared by the blob drivers.
// Artifacts are write-once: a key is stored exactly once and is only ever
// replaced by removing it first.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver names a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// Metadata keys the export worker attaches to every artifact.
const (
	MetaFilename = "filename"
	MetaPlugin   = "plugin"
	MetaFormat   = "format"
)

// WriteOptions describe an artifact being stored.
type WriteOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Object is the stored view of an artifact. Checksum is driver specific:
// sha256 hex for the fs and memory drivers, the object ETag on S3.
type Object struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	ContentType string            `json:"contentType,omitempty"`
	Checksum    string            `json:"checksum,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Created     time.Time         `json:"created"`
	URL         string            `json:"url,omitempty"`
}

// Filename is the download name recorded at write time, or the last key
// segment.
func (o Object) Filename() string {
	if name := o.Metadata[MetaFilename]; name != "" {
		return name
	}
	return path.Base(o.Key)
}

// Plugin returns the handle of the plugin that produced the artifact.
func (o Object) Plugin() string { return o.Metadata[MetaPlugin] }

// Store is implemented by every driver.
type Store interface {
	// Put stores r under key. An existing key yields ErrExists.
	Put(ctx context.Context, key string, r io.Reader, opts WriteOptions) (Object, error)
	// Open returns the artifact and its content. The caller closes the reader.
	Open(ctx context.Context, key string) (Object, io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Object, error)
	// Remove deletes key. A missing key yields ErrNotFound.
	Remove(ctx context.Context, key string) error
	// List returns the artifacts whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)
	Driver() Driver
}

var (
	ErrNotFound   = errors.New("artifact not found")
	ErrExists     = errors.New("artifact already exists")
	ErrInvalidKey = errors.New("invalid artifact key")
)

// ValidateKey accepts slash separated relative keys without empty, "." or
// ".." segments.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.ContainsRune(key, '\\') {
		return fmt.Errorf("%w: %q contains a backslash", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		switch seg {
		case "", ".", "..":
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
