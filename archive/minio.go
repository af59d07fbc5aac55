package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
)

// MinioArchiver uploads snapshot files to a MinIO (or other S3-compatible)
// bucket, grounded on the teacher's blobstore/minio store.
type MinioArchiver struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioArchiver builds a MinioArchiver. rootPrefix is prepended to
// every key.
func NewMinioArchiver(client *minio.Client, bucket, rootPrefix string) *MinioArchiver {
	return &MinioArchiver{client: client, bucket: bucket, prefix: rootPrefix}
}

// Archive uploads every file under dir to bucket/prefix/collection/lsn/.
func (a *MinioArchiver) Archive(ctx context.Context, collection string, lsn uint64, dir string) error {
	files, err := readSnapshotFiles(dir)
	if err != nil {
		return err
	}
	keyBase := path.Join(a.prefix, keyPrefix(collection, lsn))
	for name, data := range files {
		key := path.Join(keyBase, name)
		_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
		if err != nil {
			return fmt.Errorf("archive: upload %s: %w", key, err)
		}
	}
	return nil
}
