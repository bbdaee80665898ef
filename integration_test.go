package mfs

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestSyncLifecycle follows a file from its write on H, through the copy to
// J, to its removal from H once synced.
func TestSyncLifecycle(t *testing.T) {
	h, j := mustNewMemFS(), mustNewMemFS()
	fs := newTestFS(t, h, j)
	p := NewPath("/warehouse/t1/part-0")

	f, err := fs.Create(p, 0644, false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	f.Write([]byte("v1"))
	f.Close()

	// the sync job copies the file to J and drops it from H
	writeFile(t, j, "/warehouse/t1/part-0", []byte("v1"))
	if err := h.Remove("/warehouse/t1/part-0"); err != nil {
		t.Fatalf("Remove from H failed: %v", err)
	}

	f, err = fs.Open(p)
	if err != nil {
		t.Fatalf("Open after sync failed: %v", err)
	}
	if got := string(readAll(t, f)); got != "v1" {
		t.Errorf("read %q after sync, want v1", got)
	}

	// H's copy of the directory is empty, so J's listing is returned whole
	entries, err := fs.ListStatus(p.Parent())
	if err != nil {
		t.Fatalf("ListStatus failed: %v", err)
	}
	if diff := cmp.Diff([]string{"part-0"}, names(entries)); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}

	// deleting through the adapter removes both copies once H holds the tree
	if err := fs.Delete(NewPath("/warehouse"), true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if present(h, "/warehouse") || present(j, "/warehouse") {
		t.Error("both backends should have dropped /warehouse")
	}
	if _, err := fs.GetFileStatus(p); err == nil {
		t.Error("file should be gone")
	}
}

// TestWarehouseHierarchy mixes fresh partitions on H with synced ones on J.
func TestWarehouseHierarchy(t *testing.T) {
	h, j := mustNewMemFS(), mustNewMemFS()
	writeFile(t, h, "/warehouse/db/t_new/part-0", []byte("h0"))
	writeFile(t, j, "/warehouse/db/t_new/part-1", []byte("j1"))
	writeFile(t, j, "/warehouse/db/t_old/part-0", []byte("old"))
	writeFile(t, j, "/warehouse/db/t_new/part-0", []byte("stale"))
	fs := newTestFS(t, h, j)

	tests := []struct {
		path    string
		content string
	}{
		{"/warehouse/db/t_new/part-0", "h0"},
		{"/warehouse/db/t_new/part-1", "j1"},
		{"/warehouse/db/t_old/part-0", "old"},
	}
	for _, tt := range tests {
		f, err := fs.Open(NewPath(tt.path))
		if err != nil {
			t.Errorf("failed to open %s: %v", tt.path, err)
			continue
		}
		if got := string(readAll(t, f)); got != tt.content {
			t.Errorf("%s: expected %q, got %q", tt.path, tt.content, got)
		}
	}

	listings := []struct {
		dir  string
		want []string
	}{
		{"/warehouse/db", []string{"t_new", "t_old"}},
		{"/warehouse/db/t_new", []string{"part-0"}},
		{"/warehouse/db/t_old", []string{"part-0"}},
	}
	for _, tt := range listings {
		entries, err := fs.ListStatus(NewPath(tt.dir))
		if err != nil {
			t.Errorf("ListStatus %s failed: %v", tt.dir, err)
			continue
		}
		if diff := cmp.Diff(tt.want, names(entries)); diff != "" {
			t.Errorf("%s listing mismatch (-want +got):\n%s", tt.dir, diff)
		}
		for _, st := range entries {
			if st.Path.Namespace() != fs.Translator().Pub {
				t.Errorf("%s: entry %s is not in the public namespace", tt.dir, st.Path)
			}
		}
	}
}

// TestRenameLeavesSecondary renames a file both backends hold.
func TestRenameLeavesSecondary(t *testing.T) {
	h, j := mustNewMemFS(), mustNewMemFS()
	writeFile(t, h, "/old.txt", []byte("h"))
	writeFile(t, j, "/old.txt", []byte("j"))
	fs := newTestFS(t, h, j)

	if err := fs.Rename(NewPath("/old.txt"), NewPath("/new.txt")); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}
	if !present(h, "/new.txt") || present(h, "/old.txt") {
		t.Error("H should hold only /new.txt")
	}
	if !present(j, "/old.txt") || present(j, "/new.txt") {
		t.Error("J should be untouched")
	}

	// J's copy shows through once H no longer holds the name
	f, err := fs.Open(NewPath("/old.txt"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := string(readAll(t, f)); got != "j" {
		t.Errorf("read %q, want j", got)
	}
}

// TestConcurrentAccess tests thread-safe concurrent access
func TestConcurrentAccess(t *testing.T) {
	h, j := mustNewMemFS(), mustNewMemFS()
	for i := 0; i < 100; i++ {
		target := h
		if i%2 == 1 {
			target = j
		}
		writeFile(t, target, fmt.Sprintf("/file%d.txt", i), []byte(fmt.Sprintf("content%d", i)))
	}
	fs := newTestFS(t, h, j, WithProbeCache(true, 5*time.Minute, 5*time.Minute, 1000))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				st, err := fs.GetFileStatus(NewPath(fmt.Sprintf("/file%d.txt", k)))
				if err != nil {
					t.Errorf("concurrent status failed: %v", err)
					continue
				}
				if want := int64(len(fmt.Sprintf("content%d", k))); st.Length != want {
					t.Errorf("file%d: length %d, want %d", k, st.Length, want)
				}
			}
		}()
	}
	wg.Wait()
}

// TestCacheInvalidation tests that a write through the adapter reroutes
// reads cached as absent from H
func TestCacheInvalidation(t *testing.T) {
	h, j := mustNewMemFS(), mustNewMemFS()
	writeFile(t, j, "/test.txt", []byte("synced"))
	fs := newTestFS(t, h, j, WithProbeCache(true, 5*time.Minute, 5*time.Minute, 100))

	f, err := fs.Open(NewPath("/test.txt"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	readAll(t, f)

	f, err = fs.Create(NewPath("/test.txt"), 0644, true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	f.Write([]byte("rewritten"))
	f.Close()

	f, err = fs.Open(NewPath("/test.txt"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := string(readAll(t, f)); got != "rewritten" {
		t.Errorf("cache was not invalidated after write, read %q", got)
	}
}

// TestWriteInvalidatesParentCache tests that creating a file reroutes
// listings of its parent
func TestWriteInvalidatesParentCache(t *testing.T) {
	fs := newTestFS(t, mustNewMemFS(), mustNewMemFS(), WithProbeCache(true, 5*time.Minute, 5*time.Minute, 100))

	entries, err := fs.ListStatus(NewPath("/dir"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Error("directory should be empty")
	}

	f, err := fs.Create(NewPath("/dir/new.txt"), 0644, false)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	entries, err = fs.ListStatus(NewPath("/dir"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"new.txt"}, names(entries)); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

// TestCacheExpiration tests that cache entries expire correctly
func TestCacheExpiration(t *testing.T) {
	h := mustNewMemFS()
	writeFile(t, h, "/test.txt", []byte("content"))
	fs := newTestFS(t, h, mustNewMemFS(), WithProbeCache(true, 100*time.Millisecond, 50*time.Millisecond, 1000))

	f, err := fs.Open(NewPath("/test.txt"))
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	stats := fs.CacheStats()
	if !stats.Enabled {
		t.Error("cache should be enabled")
	}
	if stats.PresentSize != 1 {
		t.Errorf("expected 1 cached entry, got %d", stats.PresentSize)
	}

	time.Sleep(150 * time.Millisecond)

	// an expired entry is probed again and refreshed
	if _, ok := fs.cache.lookup("/test.txt"); ok {
		t.Error("entry should have expired")
	}
	f, err = fs.Open(NewPath("/test.txt"))
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if exists, ok := fs.cache.lookup("/test.txt"); !ok || !exists {
		t.Error("entry should be refreshed")
	}
}
