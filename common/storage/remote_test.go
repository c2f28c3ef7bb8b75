package storage

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramakit/drama/common/models"
)

// The remote backends must hand out URIs a downstream task can feed straight
// back into GetFile. The cache-hit path resolves without touching the remote,
// so the contract is checked against pre-seeded local copies.

func TestMinIOResourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := &MinIOStorage{base: newBase(dir, "alice", []string{"wf", "task"})}

	res := s.resource(path.Join(s.folderName, "log.txt"))
	require.NoError(t, res.Validate())
	assert.Equal(t, "minio://alice/wf/task/log.txt", res.String())
	assert.Equal(t, models.SchemeMinIO, res.Scheme)

	localPath := filepath.Join(dir, "alice", "wf", "task", "log.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(localPath), 0o755))
	require.NoError(t, os.WriteFile(localPath, []byte("payload"), 0o644))

	got, err := s.GetFile(context.Background(), res.String())
	require.NoError(t, err)
	assert.Equal(t, localPath, got)
}

func TestMinIOSetupResourceCarriesScheme(t *testing.T) {
	s := &MinIOStorage{base: newBase(t.TempDir(), "alice", []string{"wf", "task"})}
	res := s.resource(s.folderName)
	require.NoError(t, res.Validate())
	assert.Equal(t, "minio://alice/wf/task", res.String())
}

func TestMinIOGetFileRejectsBareURI(t *testing.T) {
	s := &MinIOStorage{base: newBase(t.TempDir(), "alice", []string{"wf", "task"})}

	_, err := s.GetFile(context.Background(), "alice/wf/task/log.txt")
	var schemeErr *NotValidSchemeError
	require.ErrorAs(t, err, &schemeErr)
	assert.Equal(t, models.SchemeMinIO, schemeErr.Want)
}

func TestHDFSResourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := &HDFSStorage{base: newBase(dir, "alice", []string{"wf", "task"})}

	res := s.resource("out.tsv")
	require.NoError(t, res.Validate())
	assert.Equal(t, "hdfs://alice/wf/task/out.tsv", res.String())
	assert.Equal(t, models.SchemeHDFS, res.Scheme)

	localPath := filepath.Join(dir, "alice", "wf", "task", "out.tsv")
	require.NoError(t, os.MkdirAll(filepath.Dir(localPath), 0o755))
	require.NoError(t, os.WriteFile(localPath, []byte("a\tb\n"), 0o644))

	got, err := s.GetFile(context.Background(), res.String())
	require.NoError(t, err)
	assert.Equal(t, localPath, got)
}

func TestHDFSSetupResourceCarriesScheme(t *testing.T) {
	s := &HDFSStorage{base: newBase(t.TempDir(), "alice", []string{"wf", "task"})}
	res := s.resource()
	require.NoError(t, res.Validate())
	assert.Equal(t, "hdfs://alice/wf/task", res.String())
}

func TestHDFSGetFileRejectsBareURI(t *testing.T) {
	s := &HDFSStorage{base: newBase(t.TempDir(), "alice", []string{"wf", "task"})}

	_, err := s.GetFile(context.Background(), "alice/wf/task/out.tsv")
	var schemeErr *NotValidSchemeError
	require.ErrorAs(t, err, &schemeErr)
	assert.Equal(t, models.SchemeHDFS, schemeErr.Want)
}
