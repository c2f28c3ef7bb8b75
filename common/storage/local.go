package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/dramakit/drama/common/models"
)

// LocalStorage keeps artifacts on the worker's filesystem only. It does not
// support distributed execution.
type LocalStorage struct {
	base
}

// NewLocal returns a Factory building local-filesystem storage under dataDir.
func NewLocal(dataDir string) Factory {
	return func(bucket string, folder ...string) (Storage, error) {
		return &LocalStorage{base: newBase(dataDir, bucket, folder)}, nil
	}
}

func (s *LocalStorage) Setup(ctx context.Context) (models.Resource, error) {
	return s.setupLocal()
}

func (s *LocalStorage) PutFile(ctx context.Context, filePath string, rename string) (models.Resource, error) {
	staged, _, err := s.stageLocal(filePath, rename)
	if err != nil {
		return models.Resource{}, err
	}
	return models.NewLocalResource(staged), nil
}

func (s *LocalStorage) GetFile(ctx context.Context, uri string) (string, error) {
	info, err := os.Stat(uri)
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("storage: %s is a directory", uri)
	}
	return uri, nil
}

func (s *LocalStorage) RemoveLocalDir(omitFiles []string) error {
	return s.removeLocalDir(omitFiles)
}

func (s *LocalStorage) RemoveRemoteDir(omitFiles []string) error {
	return nil
}
