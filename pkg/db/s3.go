package db

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
	AccessKey string
	SecretKey string
}

// the subset of *s3.Client the store needs
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ProfileStore serves the same layout as FileProfileStore from a bucket.
type S3ProfileStore struct {
	client objectGetter
	bucket string
	prefix string
}

func NewS3ProfileStore(ctx context.Context, opts S3Options) (*S3ProfileStore, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		// static keys for MinIO and friends, otherwise the default chain
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})

	return newS3ProfileStore(client, opts.Bucket, opts.Prefix), nil
}

func newS3ProfileStore(client objectGetter, bucket, prefix string) *S3ProfileStore {
	return &S3ProfileStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3ProfileStore) Profile(ctx context.Context, kind ProfileKind, id string) (string, error) {
	if !validBlobID(id) {
		return "", fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}

	key := path.Join(s.prefix, kind.Key(id))
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return "", fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
		}
		return "", fmt.Errorf("failed to get object from s3: %w", err)
	}
	defer out.Body.Close()

	return readGzip(out.Body)
}

func isNotFoundError(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
