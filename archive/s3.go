package archive

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/veyra-db/veyra/internal/hash"
)

// S3Archiver uploads snapshot files to an S3 bucket, grounded on the
// teacher's blobstore/s3 store (trimmed to a write-only archival path).
type S3Archiver struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Archiver builds an S3Archiver. rootPrefix is prepended to every key
// (e.g. "veyra-snapshots/").
func NewS3Archiver(client *s3.Client, bucket, rootPrefix string) *S3Archiver {
	return &S3Archiver{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 8 * 1024 * 1024
			u.Concurrency = 5
		}),
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// Archive uploads every file under dir to s3://bucket/prefix/collection/lsn/.
func (a *S3Archiver) Archive(ctx context.Context, collection string, lsn uint64, dir string) error {
	files, err := readSnapshotFiles(dir)
	if err != nil {
		return err
	}
	keyBase := path.Join(a.prefix, keyPrefix(collection, lsn))
	for name, data := range files {
		key := path.Join(keyBase, name)
		if _, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:             aws.String(a.bucket),
			Key:                aws.String(key),
			Body:               bytes.NewReader(data),
			ChecksumAlgorithm:  types.ChecksumAlgorithmCrc32c,
			ChecksumCRC32C:     aws.String(crc32cBase64(data)),
		}); err != nil {
			return fmt.Errorf("archive: upload %s: %w", key, err)
		}
	}
	return nil
}

// crc32cBase64 computes the CRC32-Castagnoli checksum S3 expects on small,
// single-part uploads: base64-encoded big-endian bytes.
func crc32cBase64(data []byte) string {
	sum := hash.CRC32C(data)
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return base64.StdEncoding.EncodeToString(b)
}
