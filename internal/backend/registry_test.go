package backend

import (
	"context"
	"testing"

	"github.com/content-cache/content-cache/internal/cache"
	"github.com/content-cache/content-cache/internal/content"
)

func replaceRegistry(t *testing.T) func() {
	t.Helper()
	prev := globalRegistry
	globalRegistry = newRegistry()
	return func() { globalRegistry = prev }
}

func openMemory(Options) (cache.Store, error) { return cache.NewMemoryStore(), nil }

func TestRegisterResolveAndList(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Backend{Key: "beta", Open: openMemory}); err != nil {
		t.Fatalf("register beta failed: %v", err)
	}
	if err := Register(Backend{Key: " Gamma ", Open: openMemory}); err != nil {
		t.Fatalf("register gamma failed: %v", err)
	}

	if _, ok := Resolve("beta"); !ok {
		t.Fatalf("expected beta to resolve")
	}
	if _, ok := Resolve("BETA"); !ok {
		t.Fatalf("resolve should be case-insensitive")
	}

	list := List()
	if len(list) != 2 {
		t.Fatalf("list length mismatch: %d", len(list))
	}
	if list[0].Key != "beta" || list[1].Key != "gamma" {
		t.Fatalf("unexpected order: %+v", Keys())
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Backend{Key: "disk", Open: openMemory}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := Register(Backend{Key: "DISK", Open: openMemory}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
}

func TestRegisterRequiresKeyAndOpen(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Backend{Key: "  ", Open: openMemory}); err == nil {
		t.Fatalf("blank key should be rejected")
	}
	if err := Register(Backend{Key: "noop"}); err == nil {
		t.Fatalf("backend without Open should be rejected")
	}
}

func TestBuiltinBackendsRegistered(t *testing.T) {
	keys := Keys()
	want := []string{"badger", "disk", "memory"}
	if len(keys) != len(want) {
		t.Fatalf("unexpected backends: %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("unexpected backends: %v", keys)
		}
	}
	if b, _ := Resolve(DefaultKey()); !b.Persistent {
		t.Fatalf("default backend should be persistent")
	}
}

func TestOpenDefaultsToDisk(t *testing.T) {
	root := t.TempDir()
	store, err := Open("", Options{Path: root, ShardDepth: 1})
	if err != nil {
		t.Fatalf("open default backend: %v", err)
	}
	defer store.Close()

	if store.String() != "disk@"+root {
		t.Fatalf("unexpected store: %s", store)
	}

	ctx := context.Background()
	rec := content.NewRecord(content.NewID(1, 7, 100))
	rec.SetComponent("foo", "bar", "hello")
	if err := store.Store(ctx, rec); err != nil {
		t.Fatalf("store: %v", err)
	}
	loaded, err := store.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, _ := loaded.Component("foo", "bar"); v != "hello" {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("tape", Options{}); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}
