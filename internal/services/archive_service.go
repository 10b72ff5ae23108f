package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService keeps raw copies of verified webhook payloads in object
// storage for audit. The durable store is still the source of truth; the
// archive is a write-only trail.
type ArchiveService interface {
	StoreEvent(ctx context.Context, eventID string, payload []byte) error
	EnsureBucketExists(ctx context.Context) error
}

type minioArchive struct {
	client *minio.Client
	bucket string
}

func NewArchiveService(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioArchive{client: client, bucket: bucket}, nil
}

func (a *minioArchive) StoreEvent(ctx context.Context, eventID string, payload []byte) error {
	objectName := fmt.Sprintf("webhooks/%s/%s.json", time.Now().UTC().Format("2006/01"), eventID)
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (a *minioArchive) EnsureBucketExists(ctx context.Context) error {
	found, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !found {
		return a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
