package memory

import (
	"context"
	"errors"
	"testing"

	"pluginkit/internal/infra/persistence"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.Load(ctx, "seo"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	values := map[string]any{"title": "Site", "limit": 10}
	if err := s.Save(ctx, "seo", values); err != nil {
		t.Fatalf("save: %v", err)
	}
	values["title"] = "mutated"
	got, err := s.Load(ctx, "seo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got["title"] != "Site" || got["limit"] != float64(10) {
		t.Fatalf("unexpected settings: %v", got)
	}
	handles, _ := s.Handles(ctx)
	if len(handles) != 1 || handles[0] != "seo" {
		t.Fatalf("unexpected handles %v", handles)
	}
	existed, err := s.Delete(ctx, "seo")
	if err != nil || !existed {
		t.Fatalf("expected delete to report existing row, got %v %v", existed, err)
	}
	existed, _ = s.Delete(ctx, "seo")
	if existed {
		t.Fatalf("expected second delete to report missing")
	}
	if err := s.Save(ctx, " ", nil); err == nil {
		t.Fatalf("expected error for empty handle")
	}
}
