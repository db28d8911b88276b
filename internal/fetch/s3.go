package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidS3Location is returned for s3 urls without bucket or key
var ErrInvalidS3Location = errors.New("fetch: s3 location needs bucket and key")

// S3Config describes an S3 compatible store
type S3Config struct {
	Endpoint     string // empty for AWS
	Region       string
	AccessKey    string // empty to use the default credential chain
	SecretKey    string
	SessionToken string
	UsePathStyle bool
}

// S3Source opens s3://bucket/key locations
type S3Source struct {
	client *s3.Client
}

// NewS3Source builds an S3 client. httpClient may be nil.
func NewS3Source(ctx context.Context, cfg S3Config, httpClient *http.Client) (*S3Source, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetch: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.DisableLogOutputChecksumValidationSkipped = true
		if httpClient != nil {
			o.HTTPClient = httpClient
		}
	})
	return &S3Source{client: client}, nil
}

// Open fetches the object and returns its body and size
func (s *S3Source) Open(ctx context.Context, location *url.URL) (io.ReadCloser, int64, error) {
	bucket := location.Host
	key := strings.TrimPrefix(location.Path, "/")
	if bucket == "" || key == "" {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidS3Location, location)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: get s3://%s/%s: %w", bucket, key, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}
