package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gofrs/flock"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dramakit/drama/common/models"
)

// MinIOStorage stores artifacts in a MinIO (S3-compatible) bucket while
// keeping a local scratch copy of everything it touches.
type MinIOStorage struct {
	base
	client *minio.Client
}

// MinIOOptions carries the connection settings for a MinIO endpoint.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinIO returns a Factory building MinIO-backed storage.
func NewMinIO(dataDir string, opts MinIOOptions) Factory {
	return func(bucket string, folder ...string) (Storage, error) {
		client, err := minio.New(opts.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
			Secure: opts.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: minio client: %w", err)
		}
		return &MinIOStorage{base: newBase(dataDir, bucket, folder), client: client}, nil
	}
}

func (s *MinIOStorage) Setup(ctx context.Context) (models.Resource, error) {
	if _, err := s.setupLocal(); err != nil {
		return models.Resource{}, err
	}

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return models.Resource{}, fmt.Errorf("storage: bucket exists: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return models.Resource{}, fmt.Errorf("storage: make bucket: %w", err)
		}
		// TODO: expose artifacts through signed URLs instead of a public bucket.
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, s.bucketName)
		if err := s.client.SetBucketPolicy(ctx, s.bucketName, policy); err != nil {
			return models.Resource{}, fmt.Errorf("storage: set bucket policy: %w", err)
		}
	}

	return s.resource(s.folderName), nil
}

// resource builds the tagged URI for an object under the bucket.
func (s *MinIOStorage) resource(objectName string) models.Resource {
	return models.NewMinIOResource(models.SchemeMinIO + path.Join(s.bucketName, objectName))
}

func (s *MinIOStorage) PutFile(ctx context.Context, filePath string, rename string) (models.Resource, error) {
	staged, fileName, err := s.stageLocal(filePath, rename)
	if err != nil {
		return models.Resource{}, err
	}

	objectName := path.Join(s.folderName, fileName)
	if _, err := s.client.FPutObject(ctx, s.bucketName, objectName, staged, minio.PutObjectOptions{}); err != nil {
		return models.Resource{}, fmt.Errorf("storage: put %s: %w", objectName, err)
	}

	return s.resource(objectName), nil
}

func (s *MinIOStorage) GetFile(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, models.SchemeMinIO) {
		return "", &NotValidSchemeError{URI: uri, Want: models.SchemeMinIO}
	}

	object := strings.TrimPrefix(uri, models.SchemeMinIO)
	bucket, objectName, ok := strings.Cut(object, "/")
	if !ok {
		return "", fmt.Errorf("storage: object path missing in %q", uri)
	}

	localPath := path.Join(s.dataDir, bucket, objectName)
	if err := os.MkdirAll(path.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dirs: %w", err)
	}

	// Concurrent tasks on the same host may want the same object; the lock
	// makes the download happen once.
	lock := flock.New(localPath + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("storage: lock %s: %w", localPath, err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := s.client.FGetObject(ctx, bucket, objectName, localPath, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("storage: get %s: %w", uri, err)
	}
	return localPath, nil
}

func (s *MinIOStorage) RemoveLocalDir(omitFiles []string) error {
	return s.removeLocalDir(omitFiles)
}

func (s *MinIOStorage) RemoveRemoteDir(omitFiles []string) error {
	return nil
}
