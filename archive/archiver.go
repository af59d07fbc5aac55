// Package archive uploads a collection's snapshot directory to object
// storage after a successful save, keyed by collection name and
// last-persisted LSN. It is best-effort and supplemental: the local
// snapshot is already the durable copy of record, so a failed upload is
// logged by the caller, never propagated as a save failure.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Archiver uploads the files of a local snapshot directory to a remote
// object store under a key prefix derived from collection name and LSN.
type Archiver interface {
	Archive(ctx context.Context, collection string, lsn uint64, dir string) error
}

// snapshotFiles are the fixed set of files a collection checkpoint writes.
var snapshotFiles = []string{"meta.json", "index.bin", "metadata.json"}

// keyPrefix builds the remote key prefix for a given collection/lsn pair.
func keyPrefix(collection string, lsn uint64) string {
	return fmt.Sprintf("%s/%020d", collection, lsn)
}

// readSnapshotFiles reads whichever of snapshotFiles exist under dir,
// skipping metadata.json when the collection carries no metadata.
func readSnapshotFiles(dir string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(snapshotFiles))
	for _, name := range snapshotFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("archive: read %s: %w", path, err)
		}
		out[name] = data
	}
	return out, nil
}
