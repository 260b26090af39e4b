package backup

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/luxfi/srup/pkg/config"
	"github.com/luxfi/srup/pkg/logger"
)

const (
	defaultBucket = "srup-backups"
	uploadTimeout = 5 * time.Minute
	bucketTimeout = 10 * time.Second
)

// S3Config locates the object store that receives replay state backups.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	// Prefix namespaces objects per node and always ends in "/".
	Prefix string
}

// NewS3Config derives an S3Config from the backup settings, or nil when no
// endpoint is configured.
func NewS3Config(cfg config.BackupConfig, nodeID string) *S3Config {
	if cfg.S3Endpoint == "" {
		return nil
	}
	bucket := cfg.S3Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	return &S3Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
		Prefix:    path.Join("srup", nodeID) + "/",
	}
}

// Uploader copies finished backup files to S3-compatible storage.
type Uploader struct {
	cfg    S3Config
	nodeID string
	client *minio.Client
}

// NewUploader connects to the endpoint in cfg and makes sure the bucket
// exists. A bucket that cannot be checked or created is logged, not fatal;
// the first upload reports the real problem.
func NewUploader(ctx context.Context, cfg S3Config, nodeID string) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("backup: s3 client: %w", err)
	}
	u := &Uploader{cfg: cfg, nodeID: nodeID, client: client}
	u.ensureBucket(ctx)
	logger.Info("S3 backup enabled", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket, "prefix", cfg.Prefix)
	return u, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, bucketTimeout)
	defer cancel()

	ok, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	switch {
	case err != nil:
		logger.Warn("Cannot check S3 bucket", "bucket", u.cfg.Bucket, "err", err)
	case !ok:
		if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{Region: u.cfg.Region}); err != nil {
			logger.Warn("Cannot create S3 bucket", "bucket", u.cfg.Bucket, "err", err)
			return
		}
		logger.Info("Created S3 bucket", "bucket", u.cfg.Bucket)
	}
}

// ObjectName is where a local backup file lands in the bucket.
func (u *Uploader) ObjectName(localPath string) string {
	return u.cfg.Prefix + filepath.Base(localPath)
}

// Upload stores one backup file. The backup version travels as object
// metadata so a restore can order objects without downloading them.
func (u *Uploader) Upload(ctx context.Context, localPath string, version uint64) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	object := u.ObjectName(localPath)
	info, err := u.client.FPutObject(ctx, u.cfg.Bucket, object, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"srup-node":    u.nodeID,
			"srup-version": strconv.FormatUint(version, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("backup: upload %s: %w", object, err)
	}
	logger.Info("Backup uploaded", "object", object, "bucket", u.cfg.Bucket, "size", info.Size, "version", version)
	return nil
}
