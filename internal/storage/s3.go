package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
)

// S3Publisher stores reports in an S3-compatible bucket (AWS S3, R2, MinIO).
type S3Publisher struct {
	client        *s3.Client
	uploader      *manager.Uploader
	presignClient *s3.PresignClient
	bucket        string
	prefix        string
	expiry        time.Duration
	publicBaseURL string
	log           zerolog.Logger
}

// NewS3Publisher creates a publisher for cfg.Bucket. Static credentials are used
// when configured, otherwise the default AWS credential chain applies.
func NewS3Publisher(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	p := &S3Publisher{
		client:        client,
		uploader:      manager.NewUploader(client),
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		expiry:        expiry,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:           log.With().Str("component", "s3_publisher").Logger(),
	}

	p.log.Info().
		Str("bucket", p.bucket).
		Str("prefix", p.prefix).
		Str("endpoint", cfg.Endpoint).
		Msg("S3 publisher initialized")
	return p, nil
}

// Publish uploads the report and returns a public or presigned URL.
func (p *S3Publisher) Publish(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer f.Close()

	key := p.key(name)
	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType),
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	url, err := p.url(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	p.log.Info().Str("key", key).Msg("Report uploaded")
	return url, nil
}

// List returns the reports under the prefix, newest first.
func (p *S3Publisher) List(ctx context.Context) ([]Object, error) {
	prefix := ""
	if p.prefix != "" {
		prefix = p.prefix + "/"
	}

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})

	objects := []Object{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := path.Base(*obj.Key)
			if !IsReportName(name) {
				continue
			}

			url, err := p.url(ctx, *obj.Key)
			if err != nil {
				p.log.Warn().Err(err).Str("key", *obj.Key).Msg("Failed to sign report URL")
				continue
			}

			o := Object{Name: name, Key: *obj.Key, URL: url}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.CreatedAt = obj.LastModified.UTC()
			}
			objects = append(objects, o)
		}
	}

	sortNewestFirst(objects)
	return objects, nil
}

// Open streams a report from the bucket.
func (p *S3Publisher) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !IsReportName(name) {
		return nil, ErrNotFound
	}
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return out.Body, nil
}

// Kind implements Publisher.
func (p *S3Publisher) Kind() string { return "s3" }

func (p *S3Publisher) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}

func (p *S3Publisher) url(ctx context.Context, key string) (string, error) {
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + key, nil
	}
	req, err := p.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}
