package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

const SinkName = "s3"

func init() {
	if err := xbridge.RegisterSink(SinkName, func(cfg map[string]any) (xbridge.Sink, error) {
		return NewSink(context.Background(), ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xbridge: failed to register sink %q: %w", SinkName, err))
	}
}

// API is the subset of *s3.Client the sink uses.
type API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

// Sink stores each artifact as one object under Prefix.
type Sink struct {
	cfg    Config
	client API

	bucketMu sync.Mutex
	bucketOK bool

	closed atomic.Bool
}

var _ xbridge.Sink = (*Sink)(nil)

// NewSink loads AWS configuration (static keys when set, otherwise the
// default credential chain) and builds an S3 client.
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	opts = append(opts, config.WithRegion(cfg.Region))

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if ep := cfg.endpointURL(); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return &Sink{cfg: cfg, client: client}, nil
}

// NewSinkWithClient uses a caller-supplied client.
func NewSinkWithClient(client API, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, errors.New("s3: nil client")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{cfg: cfg, client: client}, nil
}

func (s *Sink) Name() string { return SinkName }

// Key returns the object key for an artifact name.
func (s *Sink) Key(name string) string {
	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Write puts one object and returns s3://<bucket>/<key>.
func (s *Sink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s.closed.Load() {
		return "", xbridge.ErrSinkClosed
	}
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", xbridge.ErrInvalidArtifactName, name)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := s.Key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	if l, ok := xbridge.LoggerFromContext(ctx); ok {
		l.With(xlog.Str("bucket", s.cfg.Bucket), xlog.Str("key", key)).
			Debug().Msg("xbridge/s3: object stored")
	}
	return "s3://" + s.cfg.Bucket + "/" + key, nil
}

// ensureBucket checks the bucket once per sink. A failed check is retried
// on the next write.
func (s *Sink) ensureBucket(ctx context.Context) error {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()
	if s.bucketOK {
		return nil
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	switch {
	case err == nil:
	case isNotFound(err) && s.cfg.AutoCreate:
		if err := s.createBucket(ctx); err != nil {
			return err
		}
	case isNotFound(err):
		return fmt.Errorf("bucket %s does not exist: %w", s.cfg.Bucket, err)
	default:
		return fmt.Errorf("head bucket %s: %w", s.cfg.Bucket, err)
	}
	s.bucketOK = true
	return nil
}

func (s *Sink) createBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}
	if s.cfg.Region != "" && s.cfg.Region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.cfg.Region),
		}
	}
	_, err := s.client.CreateBucket(ctx, in)
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return nil
	}
	return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
}

func (s *Sink) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".cbor":
		return "application/cbor"
	default:
		return "application/octet-stream"
	}
}
