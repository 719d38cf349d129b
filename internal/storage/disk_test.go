package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(sub, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("directory: got %d bytes, want 2", got)
	}
}

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "proposals.db")
	snap := filepath.Join(dir, "snapshot.json")
	_ = os.WriteFile(db, []byte("1234"), 0644)
	_ = os.WriteFile(db+"-wal", []byte("56"), 0644)
	_ = os.WriteFile(snap, []byte("[]"), 0644)

	u, err := DiskUsage(db, snap)
	if err != nil {
		t.Fatal(err)
	}
	if u.DatabaseBytes != 6 || u.SnapshotBytes != 2 || u.Total() != 8 {
		t.Errorf("got %+v", u)
	}
}
