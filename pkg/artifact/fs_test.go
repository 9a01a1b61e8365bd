// pkg/artifact/fs_test.go
package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestFSStorePut(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "run-1", "inspector/profile.json", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(store.root, "run-1", "inspector", "profile.json")
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{}` {
		t.Errorf("payload = %q, want {}", payload)
	}
}

func TestFSStoreRefusesOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "run-1", "key.json", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "run-1", "key.json", []byte("second")); err == nil {
		t.Fatal("expected error overwriting existing artifact")
	}

	// Same key under a different run is fine
	if err := store.Put(ctx, "run-2", "key.json", []byte("other")); err != nil {
		t.Errorf("different run rejected: %v", err)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.json", "/abs.json", "a/../../b"} {
		if err := store.Put(ctx, "run-1", key, []byte("x")); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}
