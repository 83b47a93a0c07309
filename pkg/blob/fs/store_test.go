package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pluginkit/pkg/blob/core"
)

func newTempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStoreLifecycle(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	created := time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)
	store := newTempStore(t, WithClock(func() time.Time { return created }))

	obj, err := store.Put(ctx, "exports/redirects/a1/report.csv", bytes.NewReader([]byte("a,b\n")), core.WriteOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{core.MetaFilename: "Redirects.csv"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if obj.Size != 4 || obj.Checksum == "" || !obj.Created.Equal(created) {
		t.Fatalf("unexpected object %+v", obj)
	}
	if !strings.HasPrefix(obj.URL, "file://") {
		t.Fatalf("expected file url, got %q", obj.URL)
	}
	if _, err := store.Put(ctx, "exports/redirects/a1/report.csv", bytes.NewReader(nil), core.WriteOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	st, err := store.Stat(ctx, "exports/redirects/a1/report.csv")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Filename() != "Redirects.csv" || st.ContentType != "text/csv" || st.Checksum != obj.Checksum {
		t.Fatalf("unexpected stat %+v", st)
	}
	_, rc, err := store.Open(ctx, "exports/redirects/a1/report.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "a,b\n" {
		t.Fatalf("unexpected body %q", b)
	}

	if _, err := store.Put(ctx, "exports/other/x.json", strings.NewReader("[]"), core.WriteOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "exports/redirects/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "exports/redirects/a1/report.csv" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := store.List(ctx, "")
	if len(all) != 2 || all[0].Key != "exports/other/x.json" {
		t.Fatalf("expected sorted listing without sidecars, got %+v", all)
	}

	if err := store.Remove(ctx, "exports/redirects/a1/report.csv"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "exports/redirects/a1/report.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second remove should be ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "exports/redirects/a1/report.csv"+sidecarExt)); !os.IsNotExist(err) {
		t.Fatalf("sidecar should be removed, stat err %v", err)
	}
	if _, err := store.Stat(ctx, "exports"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("directories are not artifacts, got %v", err)
	}
}

func TestStoreServesFilesWithoutSidecar(t *testing.T) {
	store := newTempStore(t)
	if err := os.WriteFile(filepath.Join(store.Root(), "manual.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	obj, err := store.Stat(context.Background(), "manual.json")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if obj.Size != 2 || obj.ContentType != "application/json" || obj.Created.IsZero() {
		t.Fatalf("unexpected object %+v", obj)
	}
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"../escape.txt", "/abs.txt", " ", "a/b.meta.json", "a/.tmp-1"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.WriteOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestStorePublicURL(t *testing.T) {
	public := newTempStore(t, WithPublicURL("https://cdn.example.com/exports"))
	obj, err := public.Put(context.Background(), "a/b.csv", strings.NewReader("x"), core.WriteOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if obj.URL != "https://cdn.example.com/exports/a/b.csv" {
		t.Fatalf("unexpected url %q", obj.URL)
	}
	ignored := newTempStore(t, WithPublicURL("cdn.example.com"))
	if ignored.publicURL != nil || ignored.Driver() != core.DriverFilesystem {
		t.Fatal("schemeless public url should be ignored")
	}
}
