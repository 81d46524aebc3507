package rolestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/observability/statsd"
	"github.com/target/rolegate/internal/ports"
)

// S3Config locates the role document in an S3-compatible bucket.
type S3Config struct {
	Bucket       string
	Key          string
	Region       string
	Endpoint     string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
	Selector     string
	Metrics      statsd.Sink
	Logger       *slog.Logger
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the role document with the process's AWS credentials.
// The app token passed to FetchRoles is ignored.
type S3Source struct {
	client   objectGetter
	bucket   string
	key      string
	selector string
	rec      recorder
}

var _ ports.RoleFetcher = (*S3Source)(nil)

// NewS3Source loads AWS configuration and creates the source.
// Static credentials are used when both keys are set, otherwise the default chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Source(client, cfg)
}

func newS3Source(client objectGetter, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("object key is required")
	}
	if err := ValidateSelector(cfg.Selector); err != nil {
		return nil, err
	}
	return &S3Source{
		client:   client,
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		selector: cfg.Selector,
		rec:      newRecorder(BackendS3, cfg.Metrics, cfg.Logger),
	}, nil
}

// FetchRoles downloads and parses the role document.
func (s *S3Source) FetchRoles(ctx context.Context, _ string) ([]domainauth.Role, error) {
	start := time.Now()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, s.rec.unavailable(start, "object unavailable", "code", apiErr.ErrorCode())
		}
		return nil, s.rec.failure(start, fmt.Errorf("get role document: %w", err))
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxDocumentBytes))
	if err != nil {
		return nil, s.rec.failure(start, fmt.Errorf("read role document: %w", err))
	}
	roles, err := ParseDocument(data, s.selector)
	if err != nil {
		return nil, s.rec.failure(start, err)
	}
	s.rec.success(start, roles)
	return roles, nil
}
