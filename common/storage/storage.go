// Package storage provides uniform put/get of task artifacts across a local
// filesystem, MinIO object store, and HDFS, with a URI scheme per backend.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dramakit/drama/common/models"
)

// NotValidSchemeError reports a get_file URI that does not carry the scheme
// expected by the backend. Callers may retry with another backend or fall
// back to a direct download.
type NotValidSchemeError struct {
	URI  string
	Want string
}

func (e *NotValidSchemeError) Error() string {
	return fmt.Sprintf("object file prefix for %q is invalid: expected %q", e.URI, e.Want)
}

// Storage is the capability set shared by all backends.
type Storage interface {
	// Setup ensures the local scratch dir exists and, for remote backends,
	// idempotently creates the bucket/namespace. Returns a Resource locating
	// the created area.
	Setup(ctx context.Context) (models.Resource, error)

	// PutFile copies the source into the local dir (if not already inside),
	// renames it if requested, uploads it, and returns a Resource for the
	// uploaded object.
	PutFile(ctx context.Context, filePath string, rename string) (models.Resource, error)

	// GetFile downloads the object behind the URI to a deterministic local
	// path under the data dir and returns that path. Skips the download when
	// the file is already on disk.
	GetFile(ctx context.Context, uri string) (string, error)

	// RemoveLocalDir deletes everything under the local dir except the named
	// files, which are kept as <name>.old. With no omitted files the
	// directory itself is removed.
	RemoveLocalDir(omitFiles []string) error

	// RemoveRemoteDir is declared for parity with RemoveLocalDir. No backend
	// implements it yet; it is a no-op everywhere.
	RemoveRemoteDir(omitFiles []string) error

	// LocalDir returns the per-task scratch directory.
	LocalDir() string
}

// Factory builds a Storage for a bucket and folder path segments.
type Factory func(bucket string, folder ...string) (Storage, error)

// base carries the directory layout common to every backend.
type base struct {
	bucketName string
	folderName string
	dataDir    string
	localDir   string
}

func newBase(dataDir, bucket string, folder []string) base {
	folderName := path.Join(folder...)
	return base{
		bucketName: bucket,
		folderName: folderName,
		dataDir:    dataDir,
		localDir:   filepath.Join(dataDir, bucket, filepath.Join(folder...)),
	}
}

func (b *base) LocalDir() string {
	return b.localDir
}

// setupLocal creates the scratch directory tree.
func (b *base) setupLocal() (models.Resource, error) {
	if err := os.MkdirAll(b.localDir, 0o755); err != nil {
		return models.Resource{}, fmt.Errorf("storage: create local dir: %w", err)
	}
	return models.NewLocalResource(b.localDir), nil
}

// stageLocal makes sure filePath lives inside the local dir under fileName,
// copying or renaming as needed, and returns the staged path.
func (b *base) stageLocal(filePath, rename string) (string, string, error) {
	fileName := filepath.Base(filePath)
	if rename != "" {
		fileName = rename
	}

	staged := filepath.Join(b.localDir, fileName)
	if !strings.HasPrefix(filePath, b.localDir+string(filepath.Separator)) && filePath != staged {
		if err := copyFile(filePath, staged); err != nil {
			return "", "", fmt.Errorf("storage: stage %s: %w", filePath, err)
		}
		return staged, fileName, nil
	}

	if rename != "" && filePath != staged {
		if err := os.Rename(filePath, staged); err != nil {
			return "", "", fmt.Errorf("storage: rename %s: %w", filePath, err)
		}
		return staged, fileName, nil
	}

	return filePath, fileName, nil
}

func (b *base) removeLocalDir(omitFiles []string) error {
	entries, err := os.ReadDir(b.localDir)
	if err != nil {
		return fmt.Errorf("storage: read local dir: %w", err)
	}

	omit := make(map[string]struct{}, len(omitFiles))
	for _, name := range omitFiles {
		omit[name] = struct{}{}
	}

	for _, entry := range entries {
		itemPath := filepath.Join(b.localDir, entry.Name())

		if _, keep := omit[entry.Name()]; keep {
			if err := os.Rename(itemPath, itemPath+".old"); err != nil {
				return fmt.Errorf("storage: keep %s: %w", entry.Name(), err)
			}
			continue
		}

		if err := os.RemoveAll(itemPath); err != nil {
			return fmt.Errorf("storage: remove %s: %w", itemPath, err)
		}
	}

	if len(omitFiles) == 0 {
		return os.RemoveAll(b.localDir)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
