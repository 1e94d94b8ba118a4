package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads objects to S3 or any S3-compatible service.
type S3Store struct {
	client  putObjectAPI
	bucket  string
	baseURL string
}

// NewS3Store builds the SDK client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return newS3Store(client, opts), nil
}

func newS3Store(client putObjectAPI, opts S3Options) *S3Store {
	return &S3Store{client: client, bucket: opts.Bucket, baseURL: publicBaseURL(opts)}
}

// Upload stores the bytes under a fresh key and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if len(in.Data) == 0 {
		return nil, errors.New("storage: empty upload")
	}
	key, err := objectKey(in.Folder, in.MIMEType)
	if err != nil {
		return nil, err
	}
	contentType := in.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(in.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(in.Data))),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 put object: %w", err)
	}
	return &UploadResult{Key: key, URL: joinURL(s.baseURL, key), Bytes: int64(len(in.Data))}, nil
}

func publicBaseURL(opts S3Options) string {
	switch {
	case opts.PublicBaseURL != "":
		return strings.TrimRight(opts.PublicBaseURL, "/")
	case opts.Endpoint != "" && opts.UsePathStyle:
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	case opts.Endpoint != "":
		return strings.TrimRight(opts.Endpoint, "/")
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
}

var (
	_ Uploader = (*S3Store)(nil)
	_ Uploader = (*FileStore)(nil)
)
