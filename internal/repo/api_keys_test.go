package repo

import (
	"context"
	"errors"
	"testing"

	"shiftline/internal/db"
	"shiftline/internal/domain"
	"shiftline/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Repo{DB: conn}
}

func TestAPIKeyLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	raw := "sk-demo-scheduler"
	key := domain.APIKey{
		ID:      "KEY-1",
		ActorID: "scheduler",
		Name:    "dashboard",
		KeyHash: HashAPIKey(raw),
	}
	if err := r.InsertAPIKey(ctx, nil, key); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := r.GetAPIKeyByHash(ctx, HashAPIKey(raw))
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if got.ID != "KEY-1" || got.ActorID != "scheduler" || got.Name != "dashboard" {
		t.Fatalf("unexpected key: %+v", got)
	}
	if got.CreatedAt == "" {
		t.Fatalf("created_at not set")
	}

	keys, err := r.ListAPIKeys(ctx, "scheduler")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key for scheduler, got %d", len(keys))
	}

	if err := r.DeleteAPIKey(ctx, "KEY-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetAPIKeyByHash(ctx, HashAPIKey(raw)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked key still resolves: %v", err)
	}
	if err := r.DeleteAPIKey(ctx, "KEY-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoking an unknown id = %v, want ErrNotFound", err)
	}
	if err := r.DeleteAPIKey(ctx, "  "); err == nil {
		t.Fatalf("expected blank id to be rejected")
	}
}
