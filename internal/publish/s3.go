package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/services"
)

type uploader interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 uploads outputs to an S3-compatible bucket.
type S3 struct {
	bucket   string
	prefix   string
	endpoint string
	region   string
	upl      uploader
	logger   *slog.Logger
}

// NewS3 builds an S3 publisher. Path-style addressing is used whenever a
// custom endpoint is configured, which covers MinIO and similar stores.
func NewS3(ctx context.Context, cfg config.Publish, logger *slog.Logger) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init", "bucket is required", nil)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "load aws config", "", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if endpoint != "" {
			o.UsePathStyle = !strings.Contains(endpoint, "amazonaws.com")
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3(cfg, manager.NewUploader(client), logger), nil
}

func newS3(cfg config.Publish, upl uploader, logger *slog.Logger) *S3 {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &S3{
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		region:   cfg.Region,
		upl:      upl,
		logger:   logging.NewComponentLogger(logger, "publish"),
	}
}

// Key returns the object key for a local output file.
func (p *S3) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// URL returns the public location of key.
func (p *S3) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if p.endpoint != "" {
		return p.endpoint + "/" + p.bucket + "/" + escaped
	}
	region := p.region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, region, escaped)
}

// Publish uploads the file at localPath.
func (p *S3) Publish(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "publish", "open output", "", err)
	}
	defer file.Close()

	key := p.Key(localPath)
	contentType := contentTypeFor(localPath)

	out, err := p.upl.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "s3 upload failed", err)
	}

	location := p.URL(key)
	if out != nil && out.Location != "" {
		location = out.Location
	}
	p.logger.Info("published output",
		logging.String("bucket", p.bucket),
		logging.String("key", key),
		logging.String("url", location),
		logging.String(logging.FieldEventType, "output_published"),
	)
	return location, nil
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := videoTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
