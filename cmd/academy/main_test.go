package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/academy/internal/engine"
	"github.com/pavelanni/academy/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := seedAdmin(ctx, s, ""); err == nil {
		t.Fatal("expected an error without a password")
	}
	if err := seedAdmin(ctx, s, "pw"); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	if err := seedAdmin(ctx, s, ""); err != nil {
		t.Fatalf("second seedAdmin must be a no-op: %v", err)
	}
	u, err := s.GetUserByUsername(ctx, "admin")
	if err != nil || u == nil || !u.Role.Privileged() {
		t.Fatalf("admin = %+v, %v", u, err)
	}
}

func TestImportCatalogs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := `{"courses":[{"id":"c1","title":"Physics","price":"100","doors":[{"id":"d1","title":"Mechanics","price":"40"}]}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := engine.New(s)
	for n := 0; n < 2; n++ {
		if err := importCatalogs(ctx, eng, []string{path}); err != nil {
			t.Fatalf("importCatalogs: %v", err)
		}
	}
	c, err := s.GetCourse(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if len(c.DoorIDs) != 1 || c.DoorIDs[0] != "d1" {
		t.Errorf("doors = %v", c.DoorIDs)
	}

	if err := importCatalogs(ctx, eng, []string{filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected an error for a missing file")
	}
}
