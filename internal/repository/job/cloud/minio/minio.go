package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"image-jobs/internal/config"
	"image-jobs/internal/repository/job"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

const (
	metaFileName  = "File-Name"
	codeNoSuchKey = "NoSuchKey"
)

type FileRepository struct {
	client *minio.Client
	bucket string
	logger *zlog.Zerolog
}

func NewMinIORepository(cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	r := &FileRepository{
		client: client,
		bucket: cfg.Minio.Bucket,
		logger: logger,
	}

	err = retry.Do(func() error {
		return r.ensureBucket(context.Background())
	}, retries)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %s: %w", r.bucket, err)
	}

	return r, nil
}

func (r *FileRepository) ensureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}

	r.logger.Info().Str("bucket", r.bucket).Msg("Bucket created")
	return nil
}

func (r *FileRepository) PutObject(ctx context.Context, key string, data []byte, contentType, fileName string) error {
	if key == "" {
		return job.ErrEmptyObjectKey
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if fileName != "" {
		opts.UserMetadata = map[string]string{metaFileName: fileName}
	}

	_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("%w: failed to put %s: %v", job.ErrStorageError, key, err)
	}

	r.logger.Debug().Str("key", key).Int("size", len(data)).Msg("Object stored")
	return nil
}

// GetObject returns the object body and its size. The caller closes the body.
func (r *FileRepository) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if key == "" {
		return nil, 0, job.ErrEmptyObjectKey
	}

	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, r.mapError(key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, r.mapError(key, err)
	}

	return obj, info.Size, nil
}

func (r *FileRepository) mapError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == codeNoSuchKey {
		return fmt.Errorf("%w: %s", job.ErrObjectNotFound, key)
	}
	return fmt.Errorf("%w: failed to get %s: %v", job.ErrStorageError, key, err)
}
