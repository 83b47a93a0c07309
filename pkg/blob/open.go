package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pluginkit/pkg/blob/fs"
	"pluginkit/pkg/blob/memory"
	"pluginkit/pkg/blob/s3"
)

// Environment variables consulted by Open.
const (
	EnvDriver       = "PLUGINKIT_BLOB_DRIVER"
	EnvFSRoot       = "PLUGINKIT_BLOB_FS_ROOT"
	EnvFSPublicURL  = "PLUGINKIT_BLOB_FS_PUBLIC_URL"
	EnvS3Bucket     = "PLUGINKIT_BLOB_S3_BUCKET"
	EnvS3Region     = "PLUGINKIT_BLOB_S3_REGION"
	EnvS3Endpoint   = "PLUGINKIT_BLOB_S3_ENDPOINT"
	EnvS3PathStyle  = "PLUGINKIT_BLOB_S3_PATH_STYLE"
	EnvS3KeyPrefix  = "PLUGINKIT_BLOB_S3_PREFIX"
	defaultFSRoot   = "./storage/exports"
	defaultS3Region = "us-east-1"
)

// Open selects a Store implementation using environment variables.
//
//	PLUGINKIT_BLOB_DRIVER: fs|s3|memory (default fs)
//	PLUGINKIT_BLOB_FS_ROOT: directory root when driver=fs (default ./storage/exports)
//	PLUGINKIT_BLOB_FS_PUBLIC_URL: URL prefix serving the fs root (optional)
//	PLUGINKIT_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PATH_STYLE, _PREFIX: s3 settings
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv(EnvDriver)
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(strings.ToLower(driver)) {
	case DriverFilesystem:
		root := os.Getenv(EnvFSRoot)
		if root == "" {
			root = defaultFSRoot
		}
		return fs.New(root, fs.WithPublicURL(os.Getenv(EnvFSPublicURL)))
	case DriverS3:
		bucket := os.Getenv(EnvS3Bucket)
		if bucket == "" {
			return nil, fmt.Errorf("%s required for s3 driver", EnvS3Bucket)
		}
		region := os.Getenv(EnvS3Region)
		if region == "" {
			region = defaultS3Region
		}
		return s3.New(ctx, s3.Config{
			Bucket:    bucket,
			Region:    region,
			Endpoint:  os.Getenv(EnvS3Endpoint),
			PathStyle: strings.EqualFold(os.Getenv(EnvS3PathStyle), "true"),
			KeyPrefix: os.Getenv(EnvS3KeyPrefix),
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
