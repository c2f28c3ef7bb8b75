package storage

import (
	"github.com/dramakit/drama/common/config"
	"github.com/dramakit/drama/common/logger"
)

// GetAvailable picks the storage backend from configuration: MinIO when an
// endpoint is set, HDFS otherwise, local filesystem as the fallback.
func GetAvailable(cfg *config.Config, log *logger.Logger) Factory {
	if cfg.MinIO.Host != "" {
		return NewMinIO(cfg.DataDir, MinIOOptions{
			Endpoint:  cfg.MinIO.Conn(),
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	}
	if cfg.HDFS.Host != "" {
		return NewHDFS(cfg.DataDir, cfg.HDFS.Conn(), cfg.HDFS.Username)
	}
	log.Warn("no remote object store configured, using local filesystem storage; distributed execution is not supported")
	return NewLocal(cfg.DataDir)
}
