package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignExpiry is the longest validity S3 accepts for a presigned GET.
const presignExpiry = 7 * 24 * time.Hour

// MinioStore keeps uploads in a MinIO/S3 bucket and hands out presigned URLs.
type MinioStore struct {
	log      *slog.Logger
	client   *minio.Client
	bucket   string
	maxBytes int64
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, log *slog.Logger, endpoint, accessKey, secretKey, bucket string, useSSL bool, maxBytes int64) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Info("Bucket created", "bucket", bucket)
	}
	return &MinioStore{log: log, client: client, bucket: bucket, maxBytes: maxBytes}, nil
}

func (m *MinioStore) Put(ctx context.Context, scope Scope, originalName, declaredMIME string, r io.Reader, size int64) (domain.FileRef, error) {
	up, err := prepare(scope, originalName, declaredMIME, r, size, m.maxBytes)
	if err != nil {
		return domain.FileRef{}, err
	}
	info, err := m.client.PutObject(ctx, m.bucket, up.key, up.body, up.size, minio.PutObjectOptions{ContentType: up.contentType})
	if err != nil {
		return domain.FileRef{}, errors.Unavailable(fmt.Errorf("put object: %w", err))
	}
	url, err := m.client.PresignedGetObject(ctx, m.bucket, up.key, presignExpiry, nil)
	if err != nil {
		return domain.FileRef{}, errors.Unavailable(fmt.Errorf("presign get: %w", err))
	}

	m.log.Debug("Upload stored", "bucket", m.bucket, "key", up.key, "kind", up.kind, "bytes", info.Size)
	return domain.FileRef{URL: url.String(), Kind: up.kind, OriginalName: up.originalName}, nil
}
