package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage reports bytes on disk for the database and the corpus snapshot.
type Usage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	SnapshotBytes int64 `json:"snapshot_bytes"`
}

// Total returns the combined size.
func (u Usage) Total() int64 {
	return u.DatabaseBytes + u.SnapshotBytes
}

// DiskUsage measures the database (including its WAL and shared-memory sidecars) and the snapshot.
// Missing files count as zero.
func DiskUsage(dbPath, snapshotPath string) (Usage, error) {
	var u Usage
	var err error
	if dbPath != "" {
		if u.DatabaseBytes, err = DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
			return Usage{}, err
		}
	}
	if snapshotPath != "" {
		if u.SnapshotBytes, err = DiskUsageBytes(snapshotPath); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed). Missing paths are skipped.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return 0, err
		}
	}
	return total, nil
}
