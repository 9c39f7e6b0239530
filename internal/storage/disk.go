package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// UsageBytes returns the combined on-disk size of the given files and directories, such as
// the database, its WAL files and the search index. Missing paths count as zero.
func UsageBytes(paths ...string) (int64, error) {
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

// DatabaseFiles returns dbPath with its SQLite WAL and shared-memory companions.
func DatabaseFiles(dbPath string) []string {
	return []string{dbPath, dbPath + "-wal", dbPath + "-shm"}
}
