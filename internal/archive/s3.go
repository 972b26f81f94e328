package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fabriziosalmi/newsportal/internal/config"
)

// S3Store writes archive blobs to any S3-compatible bucket
// (AWS, MinIO, Garage, R2, ...).
type S3Store struct {
	client       *s3.Client
	bucket       string
	storageClass types.StorageClass
}

// NewS3Store creates the client and makes sure the bucket exists.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: s3 bucket is not configured")
	}
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.ForcePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	store := &S3Store{
		client:       s3.New(opts),
		bucket:       cfg.Bucket,
		storageClass: types.StorageClass(cfg.StorageClass),
	}
	if err := store.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("archive: ensure bucket exists: %w", err)
	}
	return store, nil
}

func (s *S3Store) ensureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) Provider() string { return "s3" }

func (s *S3Store) Put(ctx context.Context, key string, blob []byte, meta BlobMetadata) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(blob),
		ContentLength: aws.Int64(int64(len(blob))),
		ContentType:   aws.String("application/x-ndjson+gzip"),
		Metadata: map[string]string{
			"sha256": meta.SHA256,
			"lines":  fmt.Sprint(meta.Lines),
		},
	}
	if s.storageClass != "" {
		in.StorageClass = s.storageClass
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("archive: put object: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: get object: %w", err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("archive: delete: %w", err)
	}
	return nil
}
