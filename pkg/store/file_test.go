package store

import (
	"context"
	"errors"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := fs.Put(ctx, "sessions", "s1", []byte(`{"id":"s1"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := fs.Get(ctx, "sessions", "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"id":"s1"}` {
		t.Fatalf("data = %s", data)
	}

	if err := fs.Delete(ctx, "sessions", "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fs.Get(ctx, "sessions", "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := fs.Get(context.Background(), "sessions", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreList(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"b", "a", "c"} {
		if err := fs.Put(ctx, "knowledge", key, []byte("{}")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	keys, err := fs.List(ctx, "knowledge")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want sorted %v", keys, want)
		}
	}

	empty, err := fs.List(ctx, "absent")
	if err != nil || empty != nil {
		t.Fatalf("List(absent) = %v, %v", empty, err)
	}
}

func TestFileStoreRejectsPathEscape(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := fs.Put(ctx, "../outside", "k", []byte("{}")); err == nil {
		t.Fatal("collection escaping root should be rejected")
	}
	if err := fs.Put(ctx, "sessions", "../../k", []byte("{}")); err == nil {
		t.Fatal("key escaping root should be rejected")
	}
}
