package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

const defaultHistoryObject = "history.json"

// MinioHistory stores the history document as a single object in a bucket.
// Updates are read-modify-write and serialized inside this process.
type MinioHistory struct {
	client     *minio.Client
	bucketName string
	objectKey  string
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewMinio buat koneksi MinIO dan pastikan bucket ada
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey, objectKey string, useSSL bool, logger *slog.Logger) (*MinioHistory, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	if objectKey == "" {
		objectKey = defaultHistoryObject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MinioHistory{client: cli, bucketName: bucket, objectKey: objectKey, logger: logger}, nil
}

func (s *MinioHistory) Prepend(ctx context.Context, e *domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a failed read keeps the stored object untouched
	list, err := s.load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("reading history object %s/%s: %w", s.bucketName, s.objectKey, err)
	}
	return s.save(ctx, prepend(list, e))
}

func (s *MinioHistory) List(ctx context.Context) ([]*domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *MinioHistory) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, nil)
}

// Check implements middleware.HealthChecker.
func (s *MinioHistory) Check(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

// load reads the history document. A missing object or undecodable content
// reads as empty; every other error is returned.
func (s *MinioHistory) load(ctx context.Context) ([]*domain.HistoryEntry, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, s.objectKey, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return []*domain.HistoryEntry{}, nil
		}
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return []*domain.HistoryEntry{}, nil
		}
		return nil, err
	}
	list, ok := decodeHistory(data)
	if !ok {
		s.logger.Warn("history object is malformed, treating as empty", "bucket", s.bucketName, "key", s.objectKey)
	}
	return list, nil
}

func (s *MinioHistory) save(ctx context.Context, list []*domain.HistoryEntry) error {
	data, err := encodeHistory(list)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.bucketName, s.objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

var _ domain.HistoryRepository = (*MinioHistory)(nil)
