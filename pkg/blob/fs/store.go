// Package fs stores export artifacts as plain files under a root directory.
// Each artifact has a JSON sidecar next to it carrying the content type,
// metadata and sha256 checksum. Files without a sidecar are still served,
// described from their stat information.
package fs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"maps"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"pluginkit/pkg/blob/core"
)

const (
	sidecarExt = ".meta.json"
	tempPrefix = ".tmp-"
)

// Store is a core.Store rooted at a directory. Put is create-only per key
// but concurrent writers of the same key race on the final rename.
type Store struct {
	root      string
	publicURL *url.URL
	clock     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPublicURL makes Object.URL point below raw, e.g. a CDN serving the
// root directory. Values without a scheme are ignored.
func WithPublicURL(raw string) Option {
	return func(s *Store) {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
			s.publicURL = u
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

// New creates root if needed.
func New(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("artifact root directory required")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	s := &Store{root: root, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root returns the backing directory.
func (s *Store) Root() string { return s.root }

type sidecar struct {
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Checksum    string            `json:"sha256"`
	Size        int64             `json:"size"`
	Created     time.Time         `json:"created"`
}

func (s *Store) resolve(key string) (string, error) {
	if err := core.ValidateKey(key); err != nil {
		return "", err
	}
	base := path.Base(key)
	if strings.HasSuffix(base, sidecarExt) || strings.HasPrefix(base, tempPrefix) {
		return "", fmt.Errorf("%w: %q uses a reserved name", core.ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes the content to a temp file in the target directory, then
// renames it into place and records the sidecar.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.WriteOptions) (core.Object, error) {
	file, err := s.resolve(key)
	if err != nil {
		return core.Object{}, err
	}
	if _, err := os.Lstat(file); err == nil {
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return core.Object{}, fmt.Errorf("create artifact dir: %w", err)
	}
	sum := sha256.New()
	size, err := writeAtomic(file, io.TeeReader(r, sum))
	if err != nil {
		return core.Object{}, fmt.Errorf("write artifact %s: %w", key, err)
	}
	meta := sidecar{
		ContentType: opts.ContentType,
		Metadata:    maps.Clone(opts.Metadata),
		Checksum:    hex.EncodeToString(sum.Sum(nil)),
		Size:        size,
		Created:     s.clock().UTC(),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return core.Object{}, err
	}
	if _, err := writeAtomic(file+sidecarExt, bytes.NewReader(raw)); err != nil {
		_ = os.Remove(file)
		return core.Object{}, fmt.Errorf("write sidecar %s: %w", key, err)
	}
	return s.object(key, meta), nil
}

func (s *Store) Open(ctx context.Context, key string) (core.Object, io.ReadCloser, error) {
	file, err := s.resolve(key)
	if err != nil {
		return core.Object{}, nil, err
	}
	f, err := os.Open(file)
	if errors.Is(err, iofs.ErrNotExist) {
		return core.Object{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return core.Object{}, nil, err
	}
	obj, err := s.Stat(ctx, key)
	if err != nil {
		_ = f.Close()
		return core.Object{}, nil, err
	}
	return obj, f, nil
}

func (s *Store) Stat(_ context.Context, key string) (core.Object, error) {
	file, err := s.resolve(key)
	if err != nil {
		return core.Object{}, err
	}
	fi, err := os.Stat(file)
	if errors.Is(err, iofs.ErrNotExist) {
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return core.Object{}, err
	}
	if fi.IsDir() {
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	meta, err := readSidecar(file + sidecarExt)
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		meta = sidecar{
			ContentType: mime.TypeByExtension(filepath.Ext(file)),
			Size:        fi.Size(),
			Created:     fi.ModTime().UTC(),
		}
	case err != nil:
		return core.Object{}, err
	}
	return s.object(key, meta), nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	file, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("%w: %s", core.ErrNotFound, key)
		}
		return err
	}
	_ = os.Remove(file + sidecarExt)
	return nil
}

// List walks the root. Sidecars and in-flight temp files are not artifacts.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Object, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, sidecarExt) || strings.HasPrefix(name, tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	slices.Sort(keys)
	out := make([]core.Object, 0, len(keys))
	for _, key := range keys {
		obj, err := s.Stat(ctx, key)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (s *Store) object(key string, meta sidecar) core.Object {
	return core.Object{
		Key:         key,
		Size:        meta.Size,
		ContentType: meta.ContentType,
		Checksum:    meta.Checksum,
		Metadata:    maps.Clone(meta.Metadata),
		Created:     meta.Created,
		URL:         s.url(key),
	}
}

func (s *Store) url(key string) string {
	if s.publicURL != nil {
		return s.publicURL.JoinPath(key).String()
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))}).String()
}

func writeAtomic(dst string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	n, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dst)
}

func readSidecar(file string) (sidecar, error) {
	raw, err := os.ReadFile(file) // #nosec G304 -- path derived from a validated key
	if err != nil {
		return sidecar{}, err
	}
	var meta sidecar
	if err := json.Unmarshal(raw, &meta); err != nil {
		return sidecar{}, fmt.Errorf("decode %s: %w", filepath.Base(file), err)
	}
	return meta, nil
}
