package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/colinmarc/hdfs/v2"
	"github.com/gofrs/flock"

	"github.com/dramakit/drama/common/models"
)

// HDFSStorage stores artifacts in an HDFS namespace, mirroring the bucket and
// folder layout used by the object-store backend.
type HDFSStorage struct {
	base
	client *hdfs.Client
}

// NewHDFS returns a Factory building HDFS-backed storage against namenode.
func NewHDFS(dataDir, namenode, user string) Factory {
	return func(bucket string, folder ...string) (Storage, error) {
		client, err := hdfs.NewClient(hdfs.ClientOptions{
			Addresses: []string{namenode},
			User:      user,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: hdfs client: %w", err)
		}
		return &HDFSStorage{base: newBase(dataDir, bucket, folder), client: client}, nil
	}
}

func (s *HDFSStorage) remoteDir() string {
	return path.Join("/", s.bucketName, s.folderName)
}

func (s *HDFSStorage) Setup(ctx context.Context) (models.Resource, error) {
	if _, err := s.setupLocal(); err != nil {
		return models.Resource{}, err
	}
	if err := s.client.MkdirAll(s.remoteDir(), 0o755); err != nil {
		return models.Resource{}, fmt.Errorf("storage: mkdir %s: %w", s.remoteDir(), err)
	}
	return s.resource(), nil
}

// resource builds the tagged URI for a file under the bucket and folder.
func (s *HDFSStorage) resource(fileName ...string) models.Resource {
	parts := append([]string{s.bucketName, s.folderName}, fileName...)
	return models.NewHDFSResource(models.SchemeHDFS + path.Join(parts...))
}

func (s *HDFSStorage) PutFile(ctx context.Context, filePath string, rename string) (models.Resource, error) {
	staged, fileName, err := s.stageLocal(filePath, rename)
	if err != nil {
		return models.Resource{}, err
	}

	remotePath := path.Join(s.remoteDir(), fileName)
	// CopyToRemote refuses to overwrite; uploads are idempotent per task run.
	if _, err := s.client.Stat(remotePath); err == nil {
		if err := s.client.Remove(remotePath); err != nil {
			return models.Resource{}, fmt.Errorf("storage: replace %s: %w", remotePath, err)
		}
	}
	if err := s.client.CopyToRemote(staged, remotePath); err != nil {
		return models.Resource{}, fmt.Errorf("storage: upload %s: %w", remotePath, err)
	}

	return s.resource(fileName), nil
}

func (s *HDFSStorage) GetFile(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, "hdfs:") {
		return "", &NotValidSchemeError{URI: uri, Want: models.SchemeHDFS}
	}

	remotePath := strings.TrimPrefix(uri, models.SchemeHDFS)
	remotePath = strings.TrimPrefix(remotePath, "hdfs:")
	remotePath = strings.TrimLeft(remotePath, "/")

	localPath := path.Join(s.dataDir, remotePath)
	if err := os.MkdirAll(path.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dirs: %w", err)
	}

	lock := flock.New(localPath + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("storage: lock %s: %w", localPath, err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := s.client.CopyToLocal(path.Join("/", remotePath), localPath); err != nil {
		return "", fmt.Errorf("storage: get %s: %w", uri, err)
	}
	return localPath, nil
}

func (s *HDFSStorage) RemoveLocalDir(omitFiles []string) error {
	return s.removeLocalDir(omitFiles)
}

func (s *HDFSStorage) RemoveRemoteDir(omitFiles []string) error {
	return nil
}
