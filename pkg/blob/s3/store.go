// Package s3 stores export artifacts in one S3 or MinIO bucket, optionally
// below a key prefix shared with other applications.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pluginkit/pkg/blob/core"
)

// Store is a core.Store over one bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds explicit construction parameters. Empty credentials fall back
// to the default AWS credential chain.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional custom endpoint (MinIO)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
	KeyPrefix       string // prepended to every key, e.g. "pluginkit/"
}

// New creates an S3 blob store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg.Bucket, cfg.KeyPrefix), nil
}

func newStore(client *s3.Client, bucket, prefix string) *Store {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

func (s *Store) objectKey(key string) *string { return aws.String(s.prefix + key) }

// Put checks for an existing object first; S3 itself would overwrite.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.WriteOptions) (core.Object, error) {
	if err := core.ValidateKey(key); err != nil {
		return core.Object{}, err
	}
	switch _, err := s.Stat(ctx, key); {
	case err == nil:
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	case !errors.Is(err, core.ErrNotFound):
		return core.Object{}, err
	}
	in := &s3.PutObjectInput{Bucket: &s.bucket, Key: s.objectKey(key), Body: r, Metadata: maps.Clone(opts.Metadata)}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if name := opts.Metadata[core.MetaFilename]; name != "" {
		in.ContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", name))
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return core.Object{}, fmt.Errorf("put artifact %s: %w", key, err)
	}
	return s.Stat(ctx, key)
}

func (s *Store) Open(ctx context.Context, key string) (core.Object, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: s.objectKey(key)})
	if err != nil {
		return core.Object{}, nil, s.wrap(key, err)
	}
	obj := s.object(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return obj, out.Body, nil
}

func (s *Store) Stat(ctx context.Context, key string) (core.Object, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: s.objectKey(key)})
	if err != nil {
		return core.Object{}, s.wrap(key, err)
	}
	return s.object(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Remove stats first because DeleteObject succeeds for missing keys.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.Stat(ctx, key); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: s.objectKey(key)}); err != nil {
		return fmt.Errorf("remove artifact %s: %w", key, err)
	}
	return nil
}

// List pages through ListObjectsV2. Listing carries no content type or
// metadata; Stat a key for those.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Object, error) {
	var out []core.Object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: s.objectKey(prefix)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list artifacts %q: %w", prefix, err)
		}
		for _, o := range page.Contents {
			out = append(out, core.Object{
				Key:      strings.TrimPrefix(aws.ToString(o.Key), s.prefix),
				Size:     aws.ToInt64(o.Size),
				Checksum: strings.Trim(aws.ToString(o.ETag), `"`),
				Created:  aws.ToTime(o.LastModified),
			})
		}
	}
	return out, nil
}

func (s *Store) object(key string, size int64, contentType, etag *string, md map[string]string, modified *time.Time) core.Object {
	obj := core.Object{
		Key:         key,
		Size:        size,
		ContentType: aws.ToString(contentType),
		Checksum:    strings.Trim(aws.ToString(etag), `"`),
		Created:     aws.ToTime(modified),
	}
	// S3 hands user metadata back in canonical header case.
	if len(md) > 0 {
		obj.Metadata = make(map[string]string, len(md))
		for k, v := range md {
			obj.Metadata[strings.ToLower(k)] = v
		}
	}
	return obj
}

func (s *Store) wrap(key string, err error) error {
	var (
		nf  *types.NotFound
		nsk *types.NoSuchKey
		re  *awshttp.ResponseError
	)
	if errors.As(err, &nf) || errors.As(err, &nsk) || (errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return fmt.Errorf("artifact %s: %w", key, err)
}
